package main

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/menta2k/image-editor/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run() error {
	var args cliArgs
	cliCtx := kong.Parse(
		&args,
		kong.Name("image-editor"),
		kong.Description("Crop, filter and export images from the command line or over HTTP"),
		kong.UsageOnError(),
	)
	if err := cliCtx.Run(&args.globals); err != nil {
		return err
	}

	return nil
}

type globals struct {
	Config  string `help:"Path to a JSON config file" type:"path"`
	Verbose bool   `help:"Enable verbose logging" short:"v"`
}

type cliArgs struct {
	globals

	Crop    cropCmd    `cmd:"" help:"Crop an image or a directory of images"`
	Filter  filterCmd  `cmd:"" help:"Apply color filters to an image or a directory of images"`
	Suggest suggestCmd `cmd:"" help:"Suggest a crop rectangle around the detected subject"`
	Info    infoCmd    `cmd:"" help:"Show image dimensions, file size and dominant colors"`
	Serve   serveCmd   `cmd:"" help:"Run the interactive editing bridge"`
}

// setupLogging routes zerolog through a console writer at the requested level
func setupLogging(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.NewConsoleWriter()).Level(level)
	zerolog.DefaultContextLogger = &log.Logger
}

// loadConfig returns the defaults, or the validated contents of path
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
