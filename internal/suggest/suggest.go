// Package suggest turns missing skills into resume improvement advice. It never fails: when
// the generator is unavailable it returns a rule-based fallback tagged as degraded.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultRole names the position in prompts when the caller gives none.
const DefaultRole = "the role"

// DefaultTimeout bounds a single generator call.
const DefaultTimeout = 30 * time.Second

// MatchedText is returned when nothing is missing.
const MatchedText = "Your resume already matches the job requirements very well."

// Status tags where a suggestion's text came from.
type Status string

const (
	StatusGenerated Status = "generated"
	StatusMatched   Status = "matched"
	StatusDegraded  Status = "degraded"
)

// Suggestion is the outcome of Suggest. Reason explains a degraded result.
type Suggestion struct {
	Text   string `json:"text"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Generator produces text for a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Recorder observes suggestion outcomes.
type Recorder interface {
	ObserveSuggestion(status string)
}

var errNoGenerator = errors.New("suggestion generator not configured")

// Suggester wraps a Generator with the fallback policy.
type Suggester struct {
	generator Generator
	logger    *zap.Logger
	recorder  Recorder
	timeout   time.Duration
}

// Option configures a Suggester.
type Option func(*Suggester)

// WithLogger sets the logger used to report generator failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Suggester) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets a Recorder notified of every outcome.
func WithRecorder(r Recorder) Option {
	return func(s *Suggester) { s.recorder = r }
}

// WithTimeout bounds each generator call. Zero or negative leaves only the caller's deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Suggester) { s.timeout = d }
}

// NewSuggester creates a Suggester. A nil generator always yields the fallback text.
func NewSuggester(generator Generator, opts ...Option) *Suggester {
	s := &Suggester{generator: generator, logger: zap.NewNop(), timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Suggest returns advice for the missing skills of a candidate applying for role.
func (s *Suggester) Suggest(ctx context.Context, missing []string, role string) (out Suggestion) {
	defer func() {
		if s.recorder != nil {
			s.recorder.ObserveSuggestion(string(out.Status))
		}
	}()

	if len(missing) == 0 {
		return Suggestion{Text: MatchedText, Status: StatusMatched}
	}
	if strings.TrimSpace(role) == "" {
		role = DefaultRole
	}

	text, err := s.generate(ctx, BuildPrompt(missing, role))
	if err != nil {
		s.logger.Warn("Falling back to rule-based suggestions", zap.Error(err))
		return Suggestion{Text: Fallback(missing), Status: StatusDegraded, Reason: err.Error()}
	}
	return Suggestion{Text: text, Status: StatusGenerated}
}

func (s *Suggester) generate(ctx context.Context, prompt string) (text string, err error) {
	if s.generator == nil {
		return "", errNoGenerator
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	text, err = s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("generator returned empty text")
	}
	return text, nil
}

// BuildPrompt asks for three concise suggestions covering the missing skills.
func BuildPrompt(missing []string, role string) string {
	var b strings.Builder
	b.WriteString("You are an AI career assistant.\n\n")
	fmt.Fprintf(&b, "The candidate is missing the following skills for %s:\n", role)
	b.WriteString(strings.Join(missing, ", "))
	b.WriteString("\n\nProvide 3 clear, actionable suggestions to improve the resume.\n")
	b.WriteString("Keep it concise and practical.\n")
	return b.String()
}

// Fallback is the deterministic rule-based text, one line per missing skill.
func Fallback(missing []string) string {
	var b strings.Builder
	b.WriteString("AI suggestions are temporarily unavailable.\n")
	b.WriteString("Rule-based improvement suggestions:\n")
	for i, skill := range missing {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- Consider learning or adding a project related to %s.", skill)
	}
	return b.String()
}
