package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
)

// Options describes logger configuration supplied at creation time.
type Options struct {
	Level         string
	HumanReadable bool
	Writer        io.Writer
}

// Logger renders engine events for the operator running a scenario.
type Logger struct {
	base zerolog.Logger
}

// New creates a configured Logger instance based on Options.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	var output io.Writer = writer
	if opts.HumanReadable {
		console := zerolog.NewConsoleWriter()
		console.Out = writer
		console.TimeFormat = time.RFC3339
		output = console
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &Logger{base: logger}, nil
}

// WithScenario returns a derived logger that tags every entry with the scenario name.
func (l *Logger) WithScenario(name string) *Logger {
	if l == nil {
		return nil
	}
	derived := Logger{base: l.base.With().Str("scenario", name).Logger()}
	return &derived
}

// Event writes one engine event. Step output goes to debug so that a
// default run shows only the step lifecycle.
func (l *Logger) Event(event scenario.Event) {
	if l == nil || event == nil {
		return
	}

	switch e := event.(type) {
	case scenario.StepStarted:
		l.base.Info().Str("step_id", e.StepID).Msg("step started")
	case scenario.StepLog:
		l.base.Debug().Str("step_id", e.StepID).Msg(e.Line)
	case scenario.StepFinished:
		if e.Success {
			l.base.Info().Str("step_id", e.StepID).Msg("step succeeded")
			return
		}
		l.base.Error().Str("step_id", e.StepID).Str("reason", e.Reason).Msg("step failed")
	case scenario.RequestConfirm:
		l.base.Warn().
			Uint64("request_id", e.RequestID).
			Str("step_id", e.StepID).
			Str("phase", string(e.Phase)).
			Str("default_answer", string(e.DefaultAnswer)).
			Msg("confirmation requested")
	case scenario.ConfirmResponse:
		l.base.Info().Uint64("request_id", e.RequestID).Str("step_id", e.StepID).Bool("accepted", e.Accepted).Msg("confirmation answered")
	case scenario.ScenarioFinished:
		entry := l.base.Info()
		if e.Failed > 0 || e.Cancelled {
			entry = l.base.Error()
		}
		entry.Str("run_id", e.RunID).
			Int("succeeded", e.Succeeded).
			Int("failed", e.Failed).
			Bool("cancelled", e.Cancelled).
			Msg("scenario finished")
	default:
		l.base.Debug().Str("event_type", event.EventType()).Interface("payload", event.Payload()).Msg("event")
	}
}

// Info writes an informational log entry.
func (l *Logger) Info(msg string) {
	if l == nil {
		return
	}
	l.base.Info().Msg(msg)
}

// Error writes an error log entry including the supplied error context.
func (l *Logger) Error(err error, msg string) {
	if l == nil {
		return
	}
	event := l.base.Error()
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)
}
