package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli"
	"github.com/valerio/go-jeebie/jeebie"
	"github.com/valerio/go-jeebie/jeebie/termview"
)

func main() {
	app := cli.NewApp()
	app.Name = "dmgcore"
	app.Description = "A Game Boy (DMG) core"
	app.Usage = "dmgcore --rom <file.gb> [options]"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file (required, must end in .gb)",
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "Terminal render scale: 0 = headless, 1..5 = windowed",
			Value: 0,
		},
		cli.Uint64Flag{
			Name:  "steps",
			Usage: "Headless only: retired-instruction budget (0 = run indefinitely)",
			Value: 0,
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable verbose slog output",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("dmgcore: fatal", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	romPath := c.String("rom")
	if romPath == "" {
		cli.ShowAppHelp(c)
		return errors.New("dmgcore: --rom is required")
	}
	if !strings.HasSuffix(romPath, ".gb") {
		return fmt.Errorf("dmgcore: --rom must name a .gb file, got %q", romPath)
	}

	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("dmgcore: reading ROM: %w", err)
	}

	gb, err := jeebie.New(rom)
	if err != nil {
		return fmt.Errorf("dmgcore: %w", err)
	}

	scale := c.Int("scale")
	if scale < 0 || scale > 5 {
		return fmt.Errorf("dmgcore: --scale must be 0..5, got %d", scale)
	}

	if scale == 0 {
		slog.Info("dmgcore: running headless", "rom", romPath, "steps", c.Uint64("steps"))
		gb.RunSteps(c.Uint64("steps"))
		return nil
	}

	view, err := termview.New(gb, scale)
	if err != nil {
		return err
	}

	go gb.Run()

	return view.Run()
}
