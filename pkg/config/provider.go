package config

import (
	"fmt"

	"github.com/chrissnell/swimstroke/internal/export"
	"github.com/chrissnell/swimstroke/internal/stroke"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Analysis AnalysisData    `json:"analysis"`
	Input    InputData       `json:"input"`
	Storage  StorageData     `json:"storage,omitempty"`
	REST     *RESTServerData `json:"rest,omitempty"`
	Export   ExportData      `json:"export,omitempty"`
	Plot     PlotData        `json:"plot,omitempty"`
}

// AnalysisData holds the segmentation parameters
type AnalysisData struct {
	MinPeakDistance   int     `json:"min_peak_distance"`
	MinPeakHeight     float64 `json:"min_peak_height"`
	AirFallbackOffset int     `json:"air_fallback_offset"`
	FailurePolicy     string  `json:"failure_policy"`
	SmoothingKernel   int     `json:"smoothing_kernel"`
	Workers           int     `json:"workers"`
}

// Params converts the analysis section to stroke parameters.
func (a AnalysisData) Params() stroke.Params {
	return stroke.Params{
		MinPeakDistance:   a.MinPeakDistance,
		MinPeakHeight:     a.MinPeakHeight,
		AirFallbackOffset: a.AirFallbackOffset,
		FailurePolicy:     stroke.FailurePolicy(a.FailurePolicy),
		SmoothingKernel:   a.SmoothingKernel,
		Workers:           a.Workers,
	}
}

// InputData describes the recording file layout
type InputData struct {
	TimeFormat string   `json:"time_format,omitempty"`
	Columns    []string `json:"columns,omitempty"`
}

// StorageData holds the configuration for the session store backends.
// At most one backend may be set.
type StorageData struct {
	SQLite   *SQLiteData   `json:"sqlite,omitempty"`
	Postgres *PostgresData `json:"postgres,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

type PostgresData struct {
	ConnectionString string `json:"connection_string"`
}

type RESTServerData struct {
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
}

type ExportData struct {
	Format string `json:"format,omitempty"`
	Path   string `json:"path,omitempty"`
}

type PlotData struct {
	Dir string `json:"dir,omitempty"`
}

// Defaults
const (
	DefaultRESTPort   = 8080
	DefaultListenAddr = "0.0.0.0"
	DefaultFormat     = "csv"
)

// Default returns a configuration with every default applied and no
// storage or REST server configured.
func Default() *ConfigData {
	p := stroke.DefaultParams()
	return &ConfigData{
		Analysis: AnalysisData{
			MinPeakDistance:   p.MinPeakDistance,
			MinPeakHeight:     p.MinPeakHeight,
			AirFallbackOffset: p.AirFallbackOffset,
			FailurePolicy:     string(p.FailurePolicy),
			SmoothingKernel:   p.SmoothingKernel,
			Workers:           p.Workers,
		},
		Export: ExportData{Format: DefaultFormat},
	}
}

// Validate checks the configuration for conflicting or unusable values.
func (c *ConfigData) Validate() error {
	if err := c.Analysis.Params().Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}

	if c.Storage.SQLite != nil && c.Storage.Postgres != nil {
		return fmt.Errorf("storage: only one of sqlite or postgres may be configured")
	}
	if c.Storage.SQLite != nil && c.Storage.SQLite.Path == "" {
		return fmt.Errorf("storage: sqlite path is required")
	}
	if c.Storage.Postgres != nil && c.Storage.Postgres.ConnectionString == "" {
		return fmt.Errorf("storage: postgres connection string is required")
	}

	if c.REST != nil {
		if c.REST.Port < 1 || c.REST.Port > 65535 {
			return fmt.Errorf("rest: invalid port %d", c.REST.Port)
		}
		if (c.REST.Cert == "") != (c.REST.Key == "") {
			return fmt.Errorf("rest: cert and key must be set together")
		}
	}

	if _, err := export.FormatFromString(c.Export.Format); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
