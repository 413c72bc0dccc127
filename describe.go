package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mlinton/XVA1-Soft-Synth/internal/config"
	"github.com/mlinton/XVA1-Soft-Synth/internal/patch"
	"github.com/mlinton/XVA1-Soft-Synth/internal/serialport"
)

// describeParameters prints the parameter map: address, path, default value
// and, for enumerated fields, the options. Aliased addresses are marked with
// a star; fields without an address are listed last.
func describeParameters(w io.Writer, prefix string) {
	def := patch.Default()
	aliased := make(map[int]bool)
	for _, addr := range patch.AliasedAddresses() {
		aliased[addr] = true
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDR\tPATH\tDEFAULT\tOPTIONS")
	for _, param := range patch.Parameters() {
		if !strings.HasPrefix(param.Path, prefix) {
			continue
		}
		if param.Path == "name" {
			fmt.Fprintf(tw, "%d-%d\tname\t%q\t%d ASCII characters\n",
				param.Address, param.Address+patch.NameSize-1, def.Name, patch.NameSize)
			continue
		}

		addr := fmt.Sprint(param.Address)
		if aliased[param.Address] {
			addr += "*"
		}
		v, _ := def.Get(param.Path)
		opts := ""
		switch {
		case patch.IsBool(param.Path):
			opts = "off, on"
		case patch.IsEnvMask(param.Path):
			opts = "pitch, filter, amp (join with +)"
		case patch.Options(param.Path) != nil:
			opts = strings.Join(patch.Options(param.Path), ", ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", addr, param.Path, patch.Label(param.Path, int(v)), opts)
	}
	for _, path := range patch.Paths() {
		if _, mapped := patch.AddressOf(path); mapped || !strings.HasPrefix(path, prefix) {
			continue
		}
		v, _ := def.Get(path)
		fmt.Fprintf(tw, "-\t%s\t%s\tnot stored on the synth\n", path, patch.Label(path, int(v)))
	}
	tw.Flush()
}

func listPorts(w io.Writer, all bool) error {
	ports, err := serialport.List(!all)
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "No serial ports found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PORT\tVID:PID\tSERIAL\tPRODUCT")
	for _, p := range ports {
		id := "-"
		if p.USB {
			id = p.VID + ":" + p.PID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, id, p.Serial, p.Product)
	}
	return tw.Flush()
}

func showConfig(w io.Writer, cfg *config.Config) error {
	path, err := config.Path()
	if err != nil {
		return err
	}
	asJson, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config to JSON: %w", err)
	}
	fmt.Fprintln(w, "#", path)
	fmt.Fprintln(w, string(asJson))
	return nil
}
