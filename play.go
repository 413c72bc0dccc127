package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode"

	"github.com/mlinton/XVA1-Soft-Synth/internal/config"
	"github.com/mlinton/XVA1-Soft-Synth/internal/patch"
	"github.com/mlinton/XVA1-Soft-Synth/internal/session"
)

const maxSteps = 16

func stepPath(i int) string {
	return fmt.Sprintf("step_sequencer.step_values.%d", i)
}

// parseSteps reads a step list such as "C4 E4, G4 | r on".
func parseSteps(text string) ([]int, error) {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == '|'
	})
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no steps provided")
	}
	if len(tokens) > maxSteps {
		return nil, fmt.Errorf("at most %d steps, got %d", maxSteps, len(tokens))
	}

	steps := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		v, err := patch.ParseStep(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid step %q: %w", tok, err)
		}
		steps = append(steps, v)
	}
	return steps, nil
}

// formatSteps renders the active steps of a sequencer.
func formatSteps(seq patch.StepSequencer) string {
	n := min(max(seq.Steps, 0), maxSteps)
	names := make([]string, n)
	for i := range names {
		names[i] = patch.StepName(seq.StepValues[i])
	}
	return strings.Join(names, " ")
}

// applySteps sends each step value, then the step count.
func applySteps(s *session.Session, steps []int) error {
	for i, v := range steps {
		if err := s.Update(stepPath(i), float64(v)); err != nil {
			return err
		}
	}
	return s.Update("step_sequencer.steps", float64(len(steps)))
}

func showSteps(ctx context.Context, cfg *config.Config, verbose bool, out io.Writer) error {
	return withSession(ctx, cfg, verbose, func(ctx context.Context, s *session.Session) error {
		seq := s.Patch().StepSequencer
		state := "off"
		if seq.On {
			state = "on"
		}
		fmt.Fprintf(out, "sequencer %s, %d steps: %s\n", state, seq.Steps, formatSteps(seq))
		return nil
	})
}

func setSteps(ctx context.Context, cfg *config.Config, verbose bool, text string) error {
	steps, err := parseSteps(text)
	if err != nil {
		return err
	}
	return withSession(ctx, cfg, verbose, func(ctx context.Context, s *session.Session) error {
		if err := applySteps(s, steps); err != nil {
			return err
		}
		log.Printf("Sequencer steps: %s", formatSteps(s.Patch().StepSequencer))
		return nil
	})
}

// playSequencer switches the step sequencer on or off.
func playSequencer(ctx context.Context, cfg *config.Config, verbose bool, on bool) error {
	v := 0.0
	if on {
		v = 1
	}
	return withSession(ctx, cfg, verbose, func(ctx context.Context, s *session.Session) error {
		if err := s.Update("step_sequencer.on", v); err != nil {
			return err
		}
		log.Printf("Step sequencer on: %v", on)
		return nil
	})
}
