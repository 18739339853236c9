package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kapitanov/chip8/internal/hal"
	"github.com/kapitanov/chip8/internal/tty"
	"github.com/kapitanov/chip8/internal/vm"
	"github.com/spf13/cobra"
)

const (
	backendSDL = "sdl"
	backendTTY = "tty"
)

// backend is a host that can both show frames and read the keypad.
type backend interface {
	vm.Keyboard
	vm.Display
	Shutdown()
}

func main() {
	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s PATH_TO_ROM_FILE", filepath.Base(os.Args[0])),
		Short:         "Run emulator",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	verbose := cmd.Flags().BoolP("verbose", "v", false, "enable verbose logging")
	backendName := cmd.Flags().StringP("backend", "b", backendSDL, "frontend to run on: sdl or tty")
	seed := cmd.Flags().Uint64("seed", vm.DefaultSeed, "seed of the random number generator")
	strictCarry := cmd.Flags().Bool("strict-carry", false, "clear VF on ADD without carry and treat equal SUB operands as no borrow")
	cycleDelay := cmd.Flags().Duration("cycle-delay", hal.DefaultFrameDelay, "pause after each cycle")

	cmd.RunE = func(_ *cobra.Command, args []string) error {
		loggerOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		if *verbose {
			loggerOpts.Level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, loggerOpts)))

		path := args[0]
		bs, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to load file %q: %w", path, err)
		}

		h, err := newBackend(*backendName, *cycleDelay)
		if err != nil {
			return fmt.Errorf("unable to initialize %s backend: %w", *backendName, err)
		}
		defer h.Shutdown()

		machine, err := vm.New(bs, h, h, vm.WithSeed(*seed), vm.WithStrictCarry(*strictCarry))
		if err != nil {
			return fmt.Errorf("unable to load program %q: %w", path, err)
		}

		ctx := context.Background()
		for {
			err = machine.Run(ctx)

			if errors.Is(err, hal.ErrQuit) || errors.Is(err, tty.ErrQuit) {
				return nil
			}

			if errors.Is(err, hal.ErrReboot) || errors.Is(err, tty.ErrReboot) {
				slog.Info("reboot")
				machine.Reset()
				continue
			}

			return err
		}
	}

	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func newBackend(name string, cycleDelay time.Duration) (backend, error) {
	switch name {
	case backendSDL:
		h, err := hal.New(cycleDelay)
		if err != nil {
			return nil, err
		}
		return h, nil

	case backendTTY:
		t, err := tty.New(os.Stdin, os.Stdout, tty.Options{FrameDelay: cycleDelay})
		if err != nil {
			return nil, err
		}
		return t, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}
