package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/ankit-chaubey/xm-surgery/core"
	"github.com/ankit-chaubey/xm-surgery/core/batch"
	"github.com/ankit-chaubey/xm-surgery/core/config"
	"github.com/ankit-chaubey/xm-surgery/core/container"
	"github.com/ankit-chaubey/xm-surgery/core/transform"
)

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "TOML config file",
	EnvVars: []string{config.EnvPrefix + "CONFIG"},
}

var jsonFlag = &cli.BoolFlag{
	Name:  "json",
	Usage: "print results as JSON",
}

var langFlag = &cli.StringFlag{
	Name:  "lang",
	Usage: "language field width: auto, 2 or 3",
}

// loadConfig reads the config sources and applies the flags that were set
// on the command line.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.Context, c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("lang") {
		cfg.LangWidth = c.String("lang")
	}
	if c.IsSet("dry-run") {
		cfg.DryRun = c.Bool("dry-run")
	}
	if c.IsSet("out") {
		cfg.OutputDir = c.String("out")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("repair-lang") {
		cfg.RepairLanguage = c.Bool("repair-lang")
	}
	if c.IsSet("verify") {
		cfg.Verify = c.Bool("verify")
	}
	return cfg, config.Validate(cfg)
}

func decrypt(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: xm-surgery decrypt <file-or-dir>", 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	logger := cfg.NewLogger(os.Stderr)

	paths, err := batch.Collect(c.Args().First(), cfg.Extension)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	r := &batch.Runner{
		Options:   cfg.Options(),
		Workers:   cfg.Workers,
		OutputDir: cfg.OutputDir,
		Log:       logger,
	}
	report, err := r.Run(c.Context, paths)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	p := core.NewPrinter(c.Bool("json"))
	p.PrintReport(report)
	if cfg.DryRun {
		p.PrintInfo("dry run: no files written")
	}
	if n := report.Failed(); n > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed", n, len(report.Outcomes)), 1)
	}
	return nil
}

func inspect(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: xm-surgery inspect <file.xm>", 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	path := c.Args().First()
	input, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	m, err := container.Inspect(path, input, cfg.Options())
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", path, err), 1)
	}
	core.NewPrinter(c.Bool("json")).PrintMetadata(m)
	return nil
}

func seal(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: xm-surgery seal <audio> --track N", 2)
	}
	scheme, err := transform.ParseScheme(c.String("scheme"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	path := c.Args().First()
	plain, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	hdr := transform.Header{Scheme: scheme, TrackID: uint32(c.Uint("track"))}
	if _, err := rand.Read(hdr.IV[:]); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	sealed, err := container.Seal(plain, hdr)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	out := c.String("out")
	if out == "" {
		out = container.OutputName(path, ".xm")
	}
	if filepath.Clean(out) == filepath.Clean(path) {
		return cli.Exit("refusing to overwrite the input file", 2)
	}
	if err := os.WriteFile(out, sealed, 0o644); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	p := core.NewPrinter(false)
	p.PrintSuccess(fmt.Sprintf("sealed %s → %s (%s, track %d)", path, out, scheme, hdr.TrackID))
	return nil
}

func main() {
	app := &cli.App{
		Name:  "xm-surgery",
		Usage: "recover playable audio from .xm containers and repair their tags",
		Commands: []*cli.Command{
			{
				Name:      "decrypt",
				Usage:     "decrypt a container or every container in a directory",
				ArgsUsage: "<file-or-dir>",
				Action:    decrypt,
				Flags: []cli.Flag{
					configFlag,
					jsonFlag,
					langFlag,
					&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "run every stage but write nothing"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory (default: next to each input)"},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "files processed in parallel"},
					&cli.BoolFlag{Name: "repair-lang", Usage: "rewrite 2-byte language codes to ISO 639-2"},
					&cli.BoolFlag{Name: "verify", Usage: "re-read the tag with a standard parser and probe the audio"},
				},
			},
			{
				Name:      "inspect",
				Usage:     "describe a container without writing anything",
				ArgsUsage: "<file.xm>",
				Action:    inspect,
				Flags:     []cli.Flag{configFlag, jsonFlag, langFlag},
			},
			{
				Name:      "seal",
				Usage:     "wrap plain audio into a container",
				ArgsUsage: "<audio>",
				Action:    seal,
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "track", Aliases: []string{"t"}, Usage: "track id stored in the header", Required: true},
					&cli.StringFlag{Name: "scheme", Value: "keyed-sbox", Usage: "aes-ctr or keyed-sbox"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default: <audio>.xm)"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}
}
