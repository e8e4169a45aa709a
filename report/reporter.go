// Package report implements the reporter protocol: typed events describing
// a trial's progress, routed to a pluggable Reporter so the core never
// prints directly. Colorized console output goes through
// github.com/gookit/color, generalized to the event set this harness emits,
// plus the env-var-driven style/color configuration and the
// assertion-capture indirection that withholds events from losing paths.
package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
)

// Style selects how much a Reporter prints.
type Style string

const (
	StyleVerbose Style = "verbose"
	StyleTerse Style = "terse"
	StyleDots Style = "dots"
	StyleSilent Style = "silent"
)

// Env vars configuring the default Reporter.
const (
	EnvStyle = "WORLDLINE_REPORT_STYLE"
	EnvColor = "WORLDLINE_REPORT_COLOR"
)

// EventName identifies a point in the trial/search lifecycle an event was
// emitted from.
type EventName string

const (
	TrialStart EventName = "trial-start"
	TestStart EventName = "test-start"
	RunOps EventName = "run-ops"
	TestPass EventName = "test-pass"
	TestFail EventName = "test-fail"
	TrialPass EventName = "trial-pass"
	TrialFail EventName = "trial-fail"
	Summary EventName = "summary"
	Shrunk EventName = "shrunk"
)

// Event is one typed message emitted to a Reporter. Fields not relevant to
// Name are left zero.
type Event struct {
	Name EventName
	Time time.Time

	RunID uuid.UUID
	Message string
	OpCount int
	Concurrency int
	Repetition int
	Repetitions int
	Elapsed time.Duration
	Futures string
	Visited int
	Success bool
	FailedRep int
}

// Reporter is the pluggable sink every harness event flows through: the
// core must not print directly, and all user-visible output flows through
// the reporter.
type Reporter interface {
	Report(e Event)
}

// SilentReporter discards every event.
type SilentReporter struct{}

func (SilentReporter) Report(Event) {}

// CollectingReporter buffers events instead of printing them, for callers
// that want to inspect the event stream afterwards. The search engine does
// not use it: assertion events raised during exploration are captured on a
// worldline.Recorder instead.
type CollectingReporter struct {
	Events []Event
}

func (c *CollectingReporter) Report(e Event) { c.Events = append(c.Events, e) }

// Config controls a ConsoleReporter. Zero value resolves style/color from
// the environment.
type Config struct {
	Style Style
	PrintColor *bool // nil means "resolve from env"
}

// ResolveConfig applies env-var defaults to an incomplete
// Config.
func ResolveConfig(c Config) Config {
	if c.Style == "" {
		if v := os.Getenv(EnvStyle); v != "" {
			c.Style = Style(v)
		} else {
			c.Style = StyleDots
		}
	}
	if c.PrintColor == nil {
		v := strings.ToLower(os.Getenv(EnvColor))
		enabled := v != "0" && v != "false" && v != "no"
		c.PrintColor = &enabled
	}
	return c
}

// ConsoleReporter renders events to a writer (typically os.Stderr),
// honoring Config.Style and Config.PrintColor, leaning on gookit/color
// for decoration.
type ConsoleReporter struct {
	Out *os.File
	Config Config
}

// NewConsoleReporter builds a ConsoleReporter with env-resolved defaults
// applied on top of cfg.
func NewConsoleReporter(out *os.File, cfg Config) *ConsoleReporter {
	return &ConsoleReporter{Out: out, Config: ResolveConfig(cfg)}
}

func (c *ConsoleReporter) colorize(style color.Color, s string) string {
	if c.Config.PrintColor != nil && *c.Config.PrintColor {
		return style.Sprint(s)
	}
	return s
}

func (c *ConsoleReporter) Report(e Event) {
	switch c.Config.Style {
	case StyleSilent:
		return
	case StyleDots:
		c.reportDots(e)
	case StyleTerse:
		c.reportTerse(e)
	default:
		c.reportVerbose(e)
	}
}

func (c *ConsoleReporter) reportDots(e Event) {
	switch e.Name {
	case TestPass:
		fmt.Fprint(c.Out, c.colorize(color.Green, "."))
	case TestFail:
		fmt.Fprint(c.Out, c.colorize(color.Red, "F"))
	case TrialFail:
		fmt.Fprintln(c.Out)
		fmt.Fprintln(c.Out, c.colorize(color.Red, fmt.Sprintf("trial failed at repetition %d: %s", e.FailedRep, e.Message)))
	case Summary, Shrunk:
		c.reportVerbose(e)
	}
}

func (c *ConsoleReporter) reportTerse(e Event) {
	switch e.Name {
	case TrialPass:
		fmt.Fprintln(c.Out, c.colorize(color.Green, fmt.Sprintf("PASS %s", e.Message)))
	case TrialFail:
		fmt.Fprintln(c.Out, c.colorize(color.Red, fmt.Sprintf("FAIL %s: %s", e.Message, e.Message)))
	case Summary, Shrunk:
		c.reportVerbose(e)
	}
}

func (c *ConsoleReporter) reportVerbose(e Event) {
	line := formatVerbose(e)
	var styled string
	switch e.Name {
	case TestFail, TrialFail:
		styled = c.colorize(color.Red, line)
	case TestPass, TrialPass:
		styled = c.colorize(color.Green, line)
	case Shrunk:
		styled = c.colorize(color.Yellow, line)
	default:
		styled = c.colorize(color.Gray, line)
	}
	fmt.Fprintln(c.Out, styled)
}

func formatVerbose(e Event) string {
	switch e.Name {
	case TrialStart:
		return fmt.Sprintf("[%s] trial-start ops=%d concurrency=%d repetitions=%d", e.RunID, e.OpCount, e.Concurrency, e.Repetitions)
	case TestStart:
		return fmt.Sprintf("[%s] test-start repetition=%d/%d", e.RunID, e.Repetition+1, e.Repetitions)
	case RunOps:
		return fmt.Sprintf("[%s] run-ops ops=%d concurrency=%d elapsed=%s", e.RunID, e.OpCount, e.Concurrency, e.Elapsed)
	case TestPass:
		return fmt.Sprintf("[%s] test-pass futures=%s visited=%d elapsed=%s", e.RunID, e.Futures, e.Visited, e.Elapsed)
	case TestFail:
		return fmt.Sprintf("[%s] test-fail futures=%s visited=%d elapsed=%s: %s", e.RunID, e.Futures, e.Visited, e.Elapsed, e.Message)
	case TrialPass:
		return fmt.Sprintf("[%s] trial-pass: %s", e.RunID, e.Message)
	case TrialFail:
		return fmt.Sprintf("[%s] trial-fail repetition=%d: %s", e.RunID, e.FailedRep, e.Message)
	case Summary:
		return fmt.Sprintf("[%s] summary: %s", e.RunID, e.Message)
	case Shrunk:
		return fmt.Sprintf("[%s] shrunk: %s", e.RunID, e.Message)
	default:
		return string(e.Name) + ": " + e.Message
	}
}
