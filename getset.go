package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/mlinton/XVA1-Soft-Synth/internal/config"
	"github.com/mlinton/XVA1-Soft-Synth/internal/patch"
	"github.com/mlinton/XVA1-Soft-Synth/internal/protocol"
	"github.com/mlinton/XVA1-Soft-Synth/internal/session"
)

func getPatch(ctx context.Context, cfg *config.Config, verbose bool, out io.Writer) error {
	return withSession(ctx, cfg, verbose, func(ctx context.Context, s *session.Session) error {
		p := s.Patch()
		log.Println("Patch name", p.Name)

		asJson, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal patch to JSON: %w", err)
		}
		fmt.Fprintln(out, string(asJson))
		return nil
	})
}

// setPatch reads a JSON patch and sends every parameter that differs from
// the synth's current patch. Fields missing from the JSON keep their value.
func setPatch(ctx context.Context, cfg *config.Config, verbose bool, in io.Reader) error {
	asJson, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read patch JSON from stdin: %w", err)
	}

	return withSession(ctx, cfg, verbose, func(ctx context.Context, s *session.Session) error {
		current := s.Patch()
		want := current.Clone()
		if err := json.Unmarshal(asJson, want); err != nil {
			return fmt.Errorf("failed to unmarshal patch JSON: %w", err)
		}

		changes := diffPatch(current, want)
		log.Printf("Sending %d changed parameters.", len(changes))
		return applyChanges(s, want, changes)
	})
}

type change struct {
	Path  string  `json:"path"`
	Value float64 `json:"value"`
}

// diffPatch lists the mapped fields of to that differ from from, in
// canonical order. A changed name is reported once, as "name".
func diffPatch(from, to *patch.Patch) []change {
	var out []change
	if normalName(to.Name) != from.Name {
		out = append(out, change{Path: "name"})
	}
	for _, param := range patch.Parameters() {
		if param.Path == "name" {
			continue
		}
		a, _ := from.Get(param.Path)
		b, _ := to.Get(param.Path)
		if a != b {
			out = append(out, change{Path: param.Path, Value: b})
		}
	}
	return out
}

func applyChanges(s *session.Session, want *patch.Patch, changes []change) error {
	for _, c := range changes {
		var err error
		if c.Path == "name" {
			err = s.SetName(want.Name)
		} else {
			err = s.Update(c.Path, c.Value)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", c.Path, err)
		}
	}
	return nil
}

func normalName(name string) string {
	return strings.TrimRight(string(patch.EncodeName(name)), " ")
}

// parseValue reads a parameter value: a number, an option label of an
// enumerated field, on/off for switches, envelope names joined with "+" for
// envelope masks, or a step token for sequencer steps.
func parseValue(path, text string) (float64, error) {
	t := strings.TrimSpace(text)
	if v, err := strconv.ParseFloat(t, 64); err == nil {
		return v, nil
	}
	if strings.HasPrefix(path, "step_sequencer.step_values.") {
		v, err := patch.ParseStep(t)
		return float64(v), err
	}
	if patch.IsBool(path) {
		switch strings.ToLower(t) {
		case "on", "true", "yes":
			return 1, nil
		case "off", "false", "no":
			return 0, nil
		}
	}
	if patch.IsEnvMask(path) {
		v, err := patch.ParseEnvMask(t)
		return float64(v), err
	}
	if opts := patch.Options(path); opts != nil {
		if i := slices.IndexFunc(opts, func(o string) bool { return strings.EqualFold(o, t) }); i >= 0 {
			return float64(i), nil
		}
		return 0, fmt.Errorf("%q is not an option of %s (options: %s)", t, path, strings.Join(opts, ", "))
	}
	return 0, fmt.Errorf("invalid value %q for %s", t, path)
}

func setParam(ctx context.Context, cfg *config.Config, verbose bool, path, text string) error {
	if _, ok := patch.AddressOf(path); !ok {
		return fmt.Errorf("%w: %q has no hardware address", patch.ErrUnknownPath, path)
	}
	v, err := parseValue(path, text)
	if err != nil {
		return err
	}
	return withSession(ctx, cfg, verbose, func(ctx context.Context, s *session.Session) error {
		if err := s.Update(path, v); err != nil {
			return err
		}
		got, _ := s.Patch().Get(path)
		log.Printf("%s = %s", path, patch.Label(path, int(got)))
		return nil
	})
}

func setName(ctx context.Context, cfg *config.Config, verbose bool, name string) error {
	return withSession(ctx, cfg, verbose, func(ctx context.Context, s *session.Session) error {
		if err := s.SetName(name); err != nil {
			return err
		}
		log.Printf("Patch renamed to %q.", s.Patch().Name)
		return nil
	})
}

// loadPatch reads an image file and makes it the synth's edit buffer.
func loadPatch(ctx context.Context, cfg *config.Config, verbose bool, file string) error {
	image, err := patch.LoadFile(file)
	if err != nil {
		return err
	}
	return withSession(ctx, cfg, verbose, func(ctx context.Context, s *session.Session) error {
		if err := s.LoadImage(ctx, image); err != nil {
			return err
		}
		log.Printf("Loaded %s into the edit buffer.", file)
		return nil
	})
}

// savePatch writes the synth's current patch to file, or to a name derived
// from the patch name when file is empty.
func savePatch(ctx context.Context, cfg *config.Config, verbose bool, file string) error {
	return withSession(ctx, cfg, verbose, func(ctx context.Context, s *session.Session) error {
		if file == "" {
			file = filepath.Join(cfg.PatchDir, patch.FileName(s.Patch().Name))
		}
		if err := patch.SaveFile(file, s.Image()); err != nil {
			return err
		}
		log.Printf("Saved %s.", file)
		return nil
	})
}

func readSlot(ctx context.Context, cfg *config.Config, verbose bool, n int) error {
	slot, err := protocol.ValidSlot(n)
	if err != nil {
		return err
	}
	return withSession(ctx, cfg, verbose, func(ctx context.Context, s *session.Session) error {
		if err := s.ReadSlot(ctx, slot); err != nil {
			return err
		}
		if err := waitSynced(ctx, s); err != nil {
			return err
		}
		log.Printf("Slot %d: %q", slot, s.Patch().Name)
		rememberSlot(cfg, n)
		return nil
	})
}

func writeSlot(ctx context.Context, cfg *config.Config, verbose bool, n int) error {
	slot, err := protocol.ValidSlot(n)
	if err != nil {
		return err
	}
	return withSession(ctx, cfg, verbose, func(ctx context.Context, s *session.Session) error {
		if err := s.WriteSlot(slot); err != nil {
			return err
		}
		log.Printf("Stored %q in slot %d.", s.Patch().Name, slot)
		rememberSlot(cfg, n)
		return nil
	})
}

func rememberSlot(cfg *config.Config, n int) {
	cfg.Slot = n
	if err := cfg.Save(); err != nil {
		log.Printf("could not save config: %v", err)
	}
}
