// Package app wires configuration, storage, analysis and the REST server
// together for the swimstroke command.
package app

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/chrissnell/swimstroke/internal/controllers/restserver"
	"github.com/chrissnell/swimstroke/internal/export"
	"github.com/chrissnell/swimstroke/internal/recording"
	"github.com/chrissnell/swimstroke/internal/segplot"
	"github.com/chrissnell/swimstroke/internal/storage"
	"github.com/chrissnell/swimstroke/internal/storage/postgres"
	"github.com/chrissnell/swimstroke/internal/storage/sqlite"
	"github.com/chrissnell/swimstroke/internal/stroke"
	"github.com/chrissnell/swimstroke/pkg/config"
)

// App represents the main application
type App struct {
	cfg      *config.ConfigData
	analyzer *stroke.Analyzer
	logger   *zap.SugaredLogger
	stdout   io.Writer
}

// New creates a new application instance. cfg must already be validated.
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &App{
		cfg:      cfg,
		analyzer: stroke.NewAnalyzer(cfg.Analysis.Params(), logger.Named("stroke")),
		logger:   logger,
		stdout:   os.Stdout,
	}
}

// Analyzer returns the analyzer built from the configuration.
func (a *App) Analyzer() *stroke.Analyzer {
	return a.analyzer
}

// InputOptions returns the recording layout from the configuration.
func (a *App) InputOptions() recording.Options {
	return recording.Options{
		TimeFormat: a.cfg.Input.TimeFormat,
		Columns:    a.cfg.Input.Columns,
	}
}

// OpenStore opens the configured session store. With no backend configured
// an in-memory SQLite store is used, so nothing outlives the process.
func (a *App) OpenStore() (storage.Store, error) {
	logger := a.logger.Named("storage")
	switch {
	case a.cfg.Storage.Postgres != nil:
		return postgres.New(a.cfg.Storage.Postgres.ConnectionString, logger)
	case a.cfg.Storage.SQLite != nil:
		return sqlite.New(a.cfg.Storage.SQLite.Path, logger)
	default:
		logger.Warn("no storage backend configured; sessions are kept in memory only")
		return sqlite.New(":memory:", logger)
	}
}

// Job describes one offline analysis run.
type Job struct {
	Input string

	// Output is the indicator table destination. Empty means the configured
	// export path; "-" means stdout.
	Output string
	Format string

	// Plot is the segmentation plot destination. Empty means derive one from
	// the configured plot directory, if any.
	Plot string

	// Start and End bound the analysed interval in seconds since the first
	// sample. A zero End means the end of the recording.
	Start, End float64

	// Store saves the session to the configured store under Name.
	Store bool
	Name  string
}

// Report summarises a finished Job.
type Report struct {
	Result    *stroke.Result
	Output    string
	Plot      string
	SessionID string
}

// Process runs a Job: load, analyse, export, and optionally plot and store.
func (a *App) Process(ctx context.Context, job Job) (*Report, error) {
	samples, err := recording.LoadFile(job.Input, a.InputOptions())
	if err != nil {
		return nil, err
	}
	end := job.End
	if end == 0 {
		end = math.Inf(1)
	}
	samples = stroke.SelectInterval(samples, job.Start, end)
	a.logger.Infof("loaded %d samples from %s", len(samples), job.Input)

	res, err := a.analyzer.Analyze(ctx, samples)
	if err != nil {
		return nil, fmt.Errorf("analysis of %s failed: %w", job.Input, err)
	}
	report := &Report{Result: res}

	format := job.Format
	if format == "" {
		format = a.cfg.Export.Format
	}
	f, err := export.FormatFromString(format)
	if err != nil {
		return nil, err
	}

	report.Output = job.Output
	if report.Output == "" {
		report.Output = a.cfg.Export.Path
	}
	if report.Output == "" || report.Output == "-" {
		report.Output = "-"
		if err := export.Write(a.stdout, f, res.Rows); err != nil {
			return nil, fmt.Errorf("failed to write indicators: %w", err)
		}
	} else if err := export.WriteFile(report.Output, f, res.Rows); err != nil {
		return nil, err
	}

	report.Plot = job.Plot
	if report.Plot == "" && a.cfg.Plot.Dir != "" {
		base := strings.TrimSuffix(filepath.Base(job.Input), filepath.Ext(job.Input))
		report.Plot = filepath.Join(a.cfg.Plot.Dir, base+".png")
	}
	if report.Plot != "" {
		if err := segplot.SaveSegmentation(report.Plot, samples, res.Cycles); err != nil {
			return nil, err
		}
		a.logger.Infof("segmentation plot written to %s", report.Plot)
	}

	if job.Store {
		id, err := a.store(ctx, job, res)
		if err != nil {
			return nil, err
		}
		report.SessionID = id
	}

	return report, nil
}

func (a *App) store(ctx context.Context, job Job, res *stroke.Result) (string, error) {
	st, err := a.OpenStore()
	if err != nil {
		return "", err
	}
	defer st.Close()

	name := job.Name
	if name == "" {
		name = filepath.Base(job.Input)
	}
	sess := storage.NewSession(name, a.analyzer.Params(), res)
	if err := st.SaveSession(ctx, sess); err != nil {
		return "", err
	}
	a.logger.Infof("stored session %s (%s)", sess.ID, name)
	return sess.ID.String(), nil
}

// Serve runs the REST server until SIGINT, SIGTERM or ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, err := a.OpenStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rc := config.RESTServerData{}
	if a.cfg.REST != nil {
		rc = *a.cfg.REST
	}
	ctrl, err := restserver.NewController(ctx, &wg, rc, st, a.analyzer, a.InputOptions(), a.logger.Named("rest"))
	if err != nil {
		return err
	}
	if err := ctrl.StartController(); err != nil {
		return err
	}

	a.logger.Info("application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")

	return nil
}
