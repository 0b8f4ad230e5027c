package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/on-the-ground/featurino/config"
	"github.com/on-the-ground/featurino/feature"
	"github.com/on-the-ground/featurino/features/iris"
	"github.com/on-the-ground/featurino/frame"
	"github.com/on-the-ground/featurino/log"
	"github.com/on-the-ground/featurino/pipeline"
	"github.com/on-the-ground/featurino/storage"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// blocks maps the names accepted by --block to their definitions.
var blocks = map[string]func(c *cli.Context, logger *zap.Logger) feature.Definition{
	"lengths": func(c *cli.Context, logger *zap.Logger) feature.Definition {
		return iris.Lengths{CustomParam: c.String("custom-param"), Logger: logger}
	},
	"widths": func(*cli.Context, *zap.Logger) feature.Definition {
		return iris.Widths{}
	},
}

func blockNames() string {
	names := make([]string, 0, len(blocks))
	for name := range blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "featurino",
		Usage:     "build, cache and merge feature blocks over a CSV dataset",
		UsageText: "featurino [global options] command [command options]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error; overrides the config file",
			},
			&cli.BoolFlag{
				Name:  "dev",
				Usage: "human readable console logs",
			},
		},
		Commands: []*cli.Command{
			newBuildCmd(),
			newInspectCmd(),
		},
	}
}

func newBuildCmd() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "pipe feature blocks over an input CSV and write the merged result",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "raw dataset CSV with a header row",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "where to write the merged CSV; stdout when empty",
			},
			&cli.StringSliceFlag{
				Name:    "block",
				Aliases: []string{"b"},
				Usage:   "feature block to pipe, in order (" + blockNames() + ")",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "recompute every block even if cached",
			},
			&cli.StringFlag{
				Name:  "custom-param",
				Usage: "parameter reported by the lengths block",
			},
		},
		Action: runBuild,
	}
}

func newInspectCmd() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "describe the cache entry of a block prefix",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "prefix",
				Aliases:  []string{"p"},
				Usage:    "block prefix, e.g. lengths",
				Required: true,
			},
		},
		Action: runInspect,
	}
}

// setup loads the config and builds the logger shared by every command.
func setup(c *cli.Context) (config.Config, *zap.Logger, error) {
	conf := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if conf, err = config.Load(path); err != nil {
			return config.Config{}, nil, err
		}
	}
	if lvl := c.String("log-level"); lvl != "" {
		conf.Log.Level = log.Level(lvl)
	}
	if c.Bool("dev") {
		conf.Log.Development = true
	}
	logger, err := log.New(conf.Log.Level, conf.Log.Development)
	if err != nil {
		return config.Config{}, nil, err
	}
	return conf, logger, nil
}

func runBuild(c *cli.Context) (err error) {
	conf, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Sync(logger)

	names := c.StringSlice("block")
	if len(names) == 0 {
		return fmt.Errorf("no --block given, choose from %s", blockNames())
	}
	defs := make([]feature.Definition, 0, len(names))
	for _, name := range names {
		newDef, ok := blocks[name]
		if !ok {
			return fmt.Errorf("unknown block %q, choose from %s", name, blockNames())
		}
		defs = append(defs, newDef(c, logger))
	}

	raw, err := readCSV(c.String("input"))
	if err != nil {
		return err
	}

	backend, err := conf.OpenBackend()
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, storage.Close(backend))
	}()

	p := pipeline.New(raw, conf.Feature(backend), pipeline.WithLogger(logger)).
		SetForceReload(conf.ForceReload || c.Bool("force"))
	for _, def := range defs {
		if err := p.Pipe(def); err != nil {
			return err
		}
	}
	for _, s := range p.Steps() {
		logger.Info("block done", log.Fields(map[string]interface{}{
			"block":  s.Block,
			"source": string(s.Source),
			"rows":   s.Rows,
			"took":   s.Duration(),
			"round":  s.Round.String(),
		})...)
	}

	out := p.FeaturesDF()
	if path := c.String("output"); path != "" {
		return writeCSV(path, out)
	}
	return storage.Encode(c.App.Writer, out)
}

func runInspect(c *cli.Context) (err error) {
	conf, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Sync(logger)

	backend, err := conf.OpenBackend()
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, storage.Close(backend))
	}()

	location := storage.CachePath(conf.DataDir, c.String("prefix"))
	ok, err := backend.Exists(location)
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "location: %s\n", location)
	fmt.Fprintf(w, "backend: %s\n", conf.Storage.Backend)
	fmt.Fprintf(w, "exists: %t\n", ok)
	if !ok {
		return nil
	}
	f, err := backend.Load(location)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "rows: %d\n", f.Len())
	fmt.Fprintf(w, "columns: %s\n", strings.Join(f.Columns(), ","))
	fmt.Fprintf(w, "fingerprint: %016x\n", f.Fingerprint())
	return nil
}

func readCSV(path string) (*frame.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	f, err := storage.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return f, nil
}

func writeCSV(path string, f *frame.Frame) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()
	return storage.Encode(file, f)
}
