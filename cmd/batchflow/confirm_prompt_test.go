package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
)

func confirmRequest(def scenario.ConfirmAnswer) scenario.RequestConfirm {
	return scenario.RequestConfirm{
		RequestID:     1,
		StepID:        "truncate",
		StepName:      "Truncate staging",
		StepKind:      "sql",
		Summary:       "TRUNCATE TABLE staging",
		Message:       "This wipes staging.",
		DefaultAnswer: def,
		Phase:         scenario.PhaseBefore,
	}
}

func TestConfirmPrompterAnswers(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		def      scenario.ConfirmAnswer
		accepted bool
		answered bool
	}{
		{"explicit yes", "y\n", scenario.AnswerNo, true, true},
		{"explicit no", "NO\n", scenario.AnswerYes, false, true},
		{"empty takes default yes", "\n", scenario.AnswerYes, true, true},
		{"empty takes default no", "\n", scenario.AnswerNo, false, true},
		{"garbage then yes", "maybe\nyes\n", scenario.AnswerNo, true, true},
		{"closed input falls back", "", scenario.AnswerNo, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			p := newConfirmPrompter(strings.NewReader(tc.input), out)

			accepted, answered := p.Ask(context.Background(), confirmRequest(tc.def))
			assert.Equal(t, tc.accepted, accepted)
			assert.Equal(t, tc.answered, answered)
			assert.Contains(t, out.String(), "Truncate staging (sql), confirm before")
			assert.Contains(t, out.String(), "    TRUNCATE TABLE staging")
		})
	}
}

func TestConfirmPrompterShowsDefaultChoice(t *testing.T) {
	out := &bytes.Buffer{}
	p := newConfirmPrompter(strings.NewReader("\n"), out)
	p.Ask(context.Background(), confirmRequest(scenario.AnswerYes))
	assert.Contains(t, out.String(), "Proceed? [Y/n]")
}

func TestConfirmPrompterCancelled(t *testing.T) {
	reader, writer := io.Pipe()
	t.Cleanup(func() { writer.Close() })

	p := newConfirmPrompter(reader, io.Discard)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	accepted, answered := p.Ask(ctx, confirmRequest(scenario.AnswerYes))
	assert.True(t, accepted)
	assert.False(t, answered)
}
