package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mlinton/XVA1-Soft-Synth/internal/config"
	"github.com/mlinton/XVA1-Soft-Synth/internal/protocol"
	"github.com/mlinton/XVA1-Soft-Synth/internal/session"
)

const usage = `usage: xva1 <command> [flags] [args]

commands:
  get                      print the synth's current patch as JSON
  set                      read a JSON patch from stdin and send the changes
  param <path> <value>     set one parameter
  name <text>              rename the patch
  steps [step...]          show or program the step sequencer
  play on|off              switch the step sequencer on or off
  load <file>              load a .xva1 file into the edit buffer
  save [file]              save the edit buffer to a .xva1 file
  read-slot [slot]         load a program slot (0-127)
  write-slot [slot]        store the edit buffer in a program slot
  raw [-wait d] <text>     send text unchanged and log the response
  ports [-all]             list serial ports (FTDI only unless -all)
  describe [prefix]        list parameters and their addresses
  config [-save]           show the config; -save stores the given flags
  mcp                      serve the synth as MCP tools on stdio

common flags: -port <name> -baud <rate> -v`

var errUsage = errors.New("invalid arguments")

func main() {
	log.SetFlags(log.Ltime)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		log.Println("exiting: no command specified")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("could not load config, using defaults: %v", err)
		cfg = config.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(signalCh)
		cancel()
	}()
	go func() {
		sig := <-signalCh
		log.Printf("Caught signal %s: shutting down...", sig)
		cancel()
	}()

	if err := run(ctx, cfg, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
		}
		log.Fatalf("error: %s", describeError(err))
	}
}

// commandFlags declares the flags shared by every command. They override
// the config for this run only.
func commandFlags(name string, cfg *config.Config) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&cfg.Port, "port", cfg.Port, "serial port (default: first FTDI port)")
	fs.IntVar(&cfg.BitRate, "baud", cfg.BitRate, "bit rate")
	verbose := fs.Bool("v", false, "log every byte sent and received")
	return fs, verbose
}

func run(ctx context.Context, cfg *config.Config, cmd string, args []string) error {
	fs, verbose := commandFlags(cmd, cfg)
	wait := fs.Duration("wait", 500*time.Millisecond, "raw: how long to listen for a response")
	all := fs.Bool("all", false, "ports: list every serial port")
	save := fs.Bool("save", false, "config: save the given flags")
	patchDir := fs.String("patch-dir", cfg.PatchDir, "directory for patch files")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.PatchDir = *patchDir
	if err := cfg.Validate(); err != nil {
		return err
	}
	rest := fs.Args()

	switch cmd {
	case "get":
		return getPatch(ctx, cfg, *verbose, os.Stdout)
	case "set":
		return setPatch(ctx, cfg, *verbose, os.Stdin)
	case "param":
		if len(rest) != 2 {
			return fmt.Errorf("%w: param <path> <value>", errUsage)
		}
		return setParam(ctx, cfg, *verbose, rest[0], rest[1])
	case "name":
		if len(rest) == 0 {
			return fmt.Errorf("%w: name <text>", errUsage)
		}
		return setName(ctx, cfg, *verbose, strings.Join(rest, " "))
	case "steps":
		if len(rest) == 0 {
			return showSteps(ctx, cfg, *verbose, os.Stdout)
		}
		return setSteps(ctx, cfg, *verbose, strings.Join(rest, " "))
	case "play":
		if len(rest) != 1 {
			return fmt.Errorf("%w: play on|off", errUsage)
		}
		on, err := parseValue("step_sequencer.on", rest[0])
		if err != nil {
			return err
		}
		return playSequencer(ctx, cfg, *verbose, on != 0)
	case "load":
		if len(rest) != 1 {
			return fmt.Errorf("%w: load <file>", errUsage)
		}
		return loadPatch(ctx, cfg, *verbose, rest[0])
	case "save":
		file := ""
		if len(rest) > 0 {
			file = rest[0]
		}
		return savePatch(ctx, cfg, *verbose, file)
	case "read-slot", "write-slot":
		slot, err := slotArg(cfg, rest)
		if err != nil {
			return err
		}
		if cmd == "read-slot" {
			return readSlot(ctx, cfg, *verbose, slot)
		}
		return writeSlot(ctx, cfg, *verbose, slot)
	case "raw":
		if len(rest) == 0 {
			return fmt.Errorf("%w: raw <text>", errUsage)
		}
		return sendRaw(ctx, cfg, strings.Join(rest, " "), *wait)
	case "ports":
		return listPorts(os.Stdout, *all)
	case "describe":
		prefix := ""
		if len(rest) > 0 {
			prefix = rest[0]
		}
		describeParameters(os.Stdout, prefix)
		return nil
	case "config":
		if *save {
			if err := cfg.Save(); err != nil {
				return err
			}
		}
		return showConfig(os.Stdout, cfg)
	case "mcp":
		return runMCP(ctx, cfg, *verbose)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// slotArg reads the slot argument, falling back to the last slot used.
func slotArg(cfg *config.Config, rest []string) (int, error) {
	if len(rest) == 0 {
		return cfg.Slot, nil
	}
	n, err := strconv.Atoi(rest[0])
	if err != nil {
		return 0, fmt.Errorf("invalid slot %q: %w", rest[0], err)
	}
	if _, err := protocol.ValidSlot(n); err != nil {
		return 0, err
	}
	return n, nil
}

// sendRaw always logs the wire traffic, since the response is the point.
func sendRaw(ctx context.Context, cfg *config.Config, text string, wait time.Duration) error {
	return withSession(ctx, cfg, true, func(ctx context.Context, s *session.Session) error {
		if err := s.SendRaw(text); err != nil {
			return err
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
		}
		if s.State() != session.Connected {
			return fmt.Errorf("connection lost after sending %q", text)
		}
		return nil
	})
}

