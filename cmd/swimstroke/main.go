package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chrissnell/swimstroke/internal/app"
	"github.com/chrissnell/swimstroke/internal/log"
	"github.com/chrissnell/swimstroke/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "", "Path to a YAML configuration file (defaults are used when omitted)")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")

	input := flag.String("input", "", "Recording to analyse (CSV: time_stamp, ax, ay, az, pitch, roll)")
	output := flag.String("output", "", "Indicator table destination; '-' for stdout (default: export.path from the config, else stdout)")
	format := flag.String("format", "", "Indicator table format: csv, json or msgpack (default: export.format from the config)")
	plotPath := flag.String("plot", "", "Write a segmentation plot to this file (.png, .svg, .pdf)")
	start := flag.Float64("start", 0, "Analyse from this many seconds into the recording")
	end := flag.Float64("end", 0, "Analyse up to this many seconds into the recording (0 = end of recording)")
	store := flag.Bool("store", false, "Save the analysed session to the configured store")
	name := flag.String("name", "", "Session name used with -store (default: the input file name)")
	serve := flag.Bool("serve", false, "Run the REST server instead of analysing a file")
	flag.Parse()

	if *showVersion {
		fmt.Printf("swimstroke %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfgData, err := loadConfig(*cfgFile)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	application := app.New(cfgData, log.GetSugaredLogger())

	if *serve {
		if err := application.Serve(context.Background()); err != nil {
			log.Errorf("Application error: %v", err)
			os.Exit(1)
		}
		return
	}

	if *input == "" {
		fmt.Fprintln(os.Stderr, "either -input or -serve is required")
		flag.Usage()
		os.Exit(2)
	}

	report, err := application.Process(context.Background(), app.Job{
		Input:  *input,
		Output: *output,
		Format: *format,
		Plot:   *plotPath,
		Start:  *start,
		End:    *end,
		Store:  *store,
		Name:   *name,
	})
	if err != nil {
		log.Errorf("Analysis failed: %v", err)
		os.Exit(1)
	}

	d := report.Result.Diagnostics
	log.Infow("analysis complete",
		"strokes", len(report.Result.Rows),
		"failures", len(report.Result.Failures),
		"no_preceding_minimum", d.NoPrecedingMinimum,
		"no_inflection_found", d.NoInflectionFound,
		"output", report.Output)
	if report.SessionID != "" {
		log.Infof("session stored with id %s", report.SessionID)
	}
}

func loadConfig(cfgFile string) (*config.ConfigData, error) {
	var cfgData *config.ConfigData

	if cfgFile == "" {
		cfgData = config.Default()
	} else {
		filename, _ := filepath.Abs(cfgFile)
		provider := config.NewYAMLProvider(filename)
		defer provider.Close()

		var err error
		cfgData, err = provider.LoadConfig()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s does not exist: %w", filename, err)
		}
		if err != nil {
			return nil, fmt.Errorf("error reading config file. Run with -h for help: %w", err)
		}
	}

	if err := cfgData.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfgData, nil
}
