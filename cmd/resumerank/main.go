// Package main is the resumerank CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/hyperjump/resumerank/internal/config"
	"github.com/hyperjump/resumerank/internal/server"
	"github.com/hyperjump/resumerank/internal/storage"
	"github.com/hyperjump/resumerank/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/resumerank/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if it exists, and a missing default file yields the built-in defaults so the
// CLI works without any config. Returns the config and the path actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "rank":
		runRank()
	case "analyze":
		runAnalyze()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("resumerank version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	components, err := initializeComponents(context.Background(), cfg, logger, reg)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if err := components.openJobs(cfg, logger); err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	if _, err := components.Jobs.SyncIndex(context.Background()); err != nil {
		logger.Warn("search index sync failed", zap.Error(err))
	}

	diskPaths := storage.DatabaseFiles(cfg.Storage.DatabasePath)
	if !cfg.Storage.InMemoryIndex() {
		diskPaths = append(diskPaths, cfg.Storage.SearchIndexPath)
	}
	srv := server.NewServer(
		components.Ranker,
		components.Matcher,
		components.Jobs,
		&cfg.Server,
		logger,
		server.WithMetrics(components.Metrics, reg),
		server.WithModelStatus(components.Provider),
		server.WithDiskPaths(diskPaths...),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func printUsage() {
	fmt.Println(`resumerank - Rank resumes against a job description

Usage:
  resumerank server [flags]                    Start the HTTP server
  resumerank rank [flags] <files-or-dirs...>   Rank resumes
  resumerank analyze [flags] <resume>          Analyse one resume and suggest improvements
  resumerank watch [flags] <dir>               Re-rank a folder whenever it changes
  resumerank version                           Show version
  resumerank help                              Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/resumerank/config.yaml)
  --debug            Enable debug logging

Rank Flags:
  --config string    Config file path
  --jd string        Job description file (.txt, .md, .pdf, .docx, .odt, .rtf)
  --jd-text string   Job description text (instead of --jd)
  --semantic float   Semantic weight (set together with --skills)
  --skills float     Skills weight (set together with --semantic)
  --output string    Output format: text, compact, json or xlsx (default: text)
  --out string       Write output to a file (required for xlsx)
  --metrics string   Write Prometheus metrics in text format to a file after ranking

Analyze Flags:
  --config string    Config file path
  --jd string        Job description file
  --jd-text string   Job description text
  --role string      Role named in suggestions (default from config)
  --output string    Output format: text, compact or json (default: text)

Watch Flags:
  Same as rank, plus:
  --recursive        Include sub-directories (default from config)

Examples:
  resumerank server
  resumerank rank --jd job.txt ./resumes
  resumerank rank --jd-text "Senior Go engineer, Kubernetes, AWS" --skills 1 --semantic 0 cv1.pdf cv2.docx
  resumerank rank --jd job.md --output xlsx --out ranking.xlsx ./resumes
  resumerank analyze --jd job.txt --role "Backend Engineer" me.pdf
  resumerank watch --jd job.txt --output compact ./inbox`)
}
