package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/resumerank/internal/cli"
	"github.com/hyperjump/resumerank/internal/config"
	"github.com/hyperjump/resumerank/internal/extract"
	"github.com/hyperjump/resumerank/internal/metrics"
	"github.com/hyperjump/resumerank/internal/normalize"
	"github.com/hyperjump/resumerank/internal/ranking"
	"github.com/hyperjump/resumerank/internal/watcher"
	"github.com/hyperjump/resumerank/pkg/utils"
)

// analyzeTimeout bounds the analyze command's scoring and suggestion call.
const analyzeTimeout = 60 * time.Second

// rankOptions holds the flags shared by rank and watch.
type rankOptions struct {
	configPath  string
	jdPath      string
	jdText      string
	semantic    string
	skills      string
	output      string
	out         string
	metricsPath string
	debug       bool
}

func newRankFlagSet(name string) (*flag.FlagSet, *rankOptions) {
	opts := &rankOptions{}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "config file path")
	fs.StringVar(&opts.jdPath, "jd", "", "job description file")
	fs.StringVar(&opts.jdText, "jd-text", "", "job description text")
	fs.StringVar(&opts.semantic, "semantic", "", "semantic weight (set together with --skills)")
	fs.StringVar(&opts.skills, "skills", "", "skills weight (set together with --semantic)")
	fs.StringVar(&opts.output, "output", "text", "output format: text, compact, json or xlsx")
	fs.StringVar(&opts.out, "out", "", "write output to this file instead of stdout (required for xlsx)")
	fs.StringVar(&opts.metricsPath, "metrics", "", "write Prometheus metrics in text format to this file")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	return fs, opts
}

// rankSession is a loaded rank or watch invocation.
type rankSession struct {
	opts       *rankOptions
	cfg        *config.Config
	logger     *zap.Logger
	registry   *prometheus.Registry
	components *Components
	format     cli.OutputFormat
	weights    *ranking.Weights
	jd         string
}

func openRankSession(ctx context.Context, opts *rankOptions) (*rankSession, error) {
	format, err := cli.ParseOutputFormat(opts.output)
	if err != nil {
		return nil, err
	}
	if format == cli.OutputXLSX && opts.out == "" {
		return nil, errors.New("--output xlsx needs --out <file>")
	}
	weights, err := parseWeightFlags(opts.semantic, opts.skills)
	if err != nil {
		return nil, err
	}
	cfg, _, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := cliLogger(cfg.Debug || opts.debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	reg := prometheus.NewRegistry()
	components, err := initializeComponents(ctx, cfg, logger, reg)
	if err != nil {
		return nil, err
	}
	jd, err := readJobDescription(components.Extractor, opts.jdPath, opts.jdText)
	if err != nil {
		components.Close()
		return nil, err
	}
	return &rankSession{
		opts:       opts,
		cfg:        cfg,
		logger:     logger,
		registry:   reg,
		components: components,
		format:     format,
		weights:    weights,
		jd:         jd,
	}, nil
}

func (s *rankSession) Close() {
	s.components.Close()
	_ = s.logger.Sync()
}

// rank extracts and ranks paths, then writes the results and, if requested, the metrics file.
func (s *rankSession) rank(ctx context.Context, paths []string, skipUnreadable bool) error {
	resumes, err := extractResumes(ctx, s.components.Extractor, paths, s.logger, skipUnreadable)
	if err != nil {
		return err
	}
	start := time.Now()
	results, err := s.components.Ranker.Rank(ctx, s.jd, resumes, s.weights)
	elapsed := time.Since(start)
	s.components.Metrics.ObserveRank(metrics.SourceCLI, elapsed, len(results), err)
	if err != nil {
		return err
	}
	if err := writeResults(s.opts.out, results, elapsed, s.format); err != nil {
		return fmt.Errorf("output failed: %w", err)
	}
	if s.opts.metricsPath != "" {
		if err := prometheus.WriteToTextfile(s.opts.metricsPath, s.registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func runRank() {
	fs, opts := newRankFlagSet("rank")
	_ = fs.Parse(flagsFirst(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: resumerank rank [flags] <files-or-dirs...>")
		os.Exit(1)
	}

	ctx := context.Background()
	session, err := openRankSession(ctx, opts)
	if err != nil {
		exitf("%v", err)
	}
	defer session.Close()

	paths, err := expandInputs(fs.Args(), false)
	if err != nil {
		exitf("%v", err)
	}
	if len(paths) == 0 {
		exitf("no resumes found in %s", strings.Join(fs.Args(), ", "))
	}
	if err := session.rank(ctx, paths, false); err != nil {
		exitf("Ranking failed: %v", err)
	}
}

func runWatch() {
	fs, opts := newRankFlagSet("watch")
	recursive := fs.Bool("recursive", false, "include sub-directories (default from config)")
	_ = fs.Parse(flagsFirst(os.Args[2:]))
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: resumerank watch [flags] <dir>")
		os.Exit(1)
	}
	dir := fs.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := openRankSession(ctx, opts)
	if err != nil {
		exitf("%v", err)
	}
	defer session.Close()
	recurse := session.cfg.Watch.Recursive || *recursive

	rankFolder := func(ctx context.Context) {
		paths, err := expandInputs([]string{dir}, recurse)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Listing %s failed: %v\n", dir, err)
			return
		}
		if len(paths) == 0 {
			fmt.Fprintf(os.Stderr, "No resumes in %s yet\n", dir)
			return
		}
		if err := session.rank(ctx, paths, true); err != nil {
			fmt.Fprintf(os.Stderr, "Ranking failed: %v\n", err)
		}
	}

	rankFolder(ctx)
	w := watcher.New(dir, extract.SupportedExtensions,
		func(ctx context.Context, changed []string) {
			session.logger.Info("resumes changed", zap.Strings("files", changed))
			rankFolder(ctx)
		},
		watcher.WithLogger(session.logger),
		watcher.WithDebounce(session.cfg.Watch.Debounce()),
		watcher.WithRecursive(recurse),
	)
	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", dir)
	if err := w.Run(ctx); err != nil {
		exitf("Watch failed: %v", err)
	}
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	jdPath := fs.String("jd", "", "job description file")
	jdText := fs.String("jd-text", "", "job description text")
	role := fs.String("role", "", "role named in suggestions (default from config)")
	outputFormat := fs.String("output", "text", "output format: text, compact or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(flagsFirst(os.Args[2:]))
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: resumerank analyze [flags] <resume>")
		os.Exit(1)
	}

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		exitf("%v", err)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		exitf("Failed to load config: %v", err)
	}
	logger, err := cliLogger(cfg.Debug || *debug)
	if err != nil {
		exitf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	components, err := initializeComponents(context.Background(), cfg, logger, nil)
	if err != nil {
		exitf("Failed to initialize: %v", err)
	}
	defer components.Close()

	jd, err := readJobDescription(components.Extractor, *jdPath, *jdText)
	if err != nil {
		exitf("%v", err)
	}
	path := fs.Arg(0)
	text, err := components.Extractor.Extract(path)
	if err != nil {
		exitf("Failed to read %s: %v", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()
	report := components.Matcher.Match(ctx, normalize.Clean(text), jd, *role)
	if err := cli.WriteMatchReport(os.Stdout, filepath.Base(path), report, format); err != nil {
		exitf("Output failed: %v", err)
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// cliLogger keeps stdout free for results: warnings only unless debug is set.
func cliLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return utils.NewLogger(true)
	}
	return utils.NewQuietLogger()
}

// flagsFirst moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse sees them. Go's flag package stops at the
// first non-flag argument, so "resumerank rank ./cvs --jd job.txt" would otherwise leave
// --jd unparsed.
func flagsFirst(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// parseWeightFlags returns nil when neither weight is given so the configured weights apply.
func parseWeightFlags(semantic, skills string) (*ranking.Weights, error) {
	if semantic == "" && skills == "" {
		return nil, nil
	}
	if semantic == "" || skills == "" {
		return nil, errors.New("--semantic and --skills must be set together")
	}
	ws, err := strconv.ParseFloat(semantic, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid --semantic %q", semantic)
	}
	wk, err := strconv.ParseFloat(skills, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid --skills %q", skills)
	}
	if ws < 0 || wk < 0 {
		return nil, errors.New("weights must not be negative")
	}
	return &ranking.Weights{Semantic: ws, Skills: wk}, nil
}

// readJobDescription returns the text of the --jd file or the --jd-text value; exactly one
// must be set.
func readJobDescription(extractor *extract.Extractor, path, text string) (string, error) {
	switch {
	case path != "" && text != "":
		return "", errors.New("use either --jd or --jd-text, not both")
	case path != "":
		jd, err := extractor.Extract(path)
		if err != nil {
			return "", fmt.Errorf("failed to read job description: %w", err)
		}
		return jd, nil
	case strings.TrimSpace(text) != "":
		return text, nil
	default:
		return "", errors.New("a job description is required (--jd or --jd-text)")
	}
}

// expandInputs resolves files and directories to resume paths. Directories contribute their
// supported files sorted by name; sub-directories are included only when recursive. Files
// named explicitly are kept even with an unsupported extension so extraction reports them.
func expandInputs(args []string, recursive bool) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := listResumes(arg, recursive)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

func listResumes(dir string, recursive bool) ([]string, error) {
	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		var paths []string
		for _, e := range entries {
			if !e.IsDir() && extract.Supported(e.Name()) {
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
		return paths, nil
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && extract.Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// extractResumes reads paths in parallel, keeping input order. With skipUnreadable, files
// that fail to extract are logged and left out instead of failing the whole batch.
func extractResumes(ctx context.Context, extractor *extract.Extractor, paths []string, logger *zap.Logger, skipUnreadable bool) ([]ranking.Resume, error) {
	resumes := make([]ranking.Resume, len(paths))
	ok := make([]bool, len(paths))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			text, err := extractor.Extract(path)
			if err != nil {
				if skipUnreadable {
					logger.Warn("skipping unreadable resume", zap.String("path", path), zap.Error(err))
					return nil
				}
				return fmt.Errorf("%s: %w", path, err)
			}
			text = normalize.Clean(text)
			filename := filepath.Base(path)
			resumes[i] = ranking.Resume{
				ID:       ranking.DeriveID(filename, text),
				Filename: filename,
				Text:     text,
			}
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := resumes[:0]
	for i, r := range resumes {
		if ok[i] {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

// writeResults writes to outPath, or stdout when it is empty.
func writeResults(outPath string, results []ranking.RankedResult, elapsed time.Duration, format cli.OutputFormat) error {
	if outPath == "" {
		return cli.WriteRankResults(os.Stdout, results, elapsed, format)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := cli.WriteRankResults(f, results, elapsed, format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %d results to %s\n", len(results), outPath)
	return nil
}
