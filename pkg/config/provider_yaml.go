package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file. Omitted
// settings take their defaults.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := parseYAML(cfgFile)
	if err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

func parseYAML(data []byte) (*ConfigData, error) {
	// Load into temporary struct with YAML tags
	var yamlConfig ConfigYAML
	if err := yaml.UnmarshalStrict(data, &yamlConfig); err != nil {
		return nil, err
	}

	config := Default()

	a := yamlConfig.Analysis
	if a.MinPeakDistance != nil {
		config.Analysis.MinPeakDistance = *a.MinPeakDistance
	}
	if a.MinPeakHeight != nil {
		config.Analysis.MinPeakHeight = *a.MinPeakHeight
	}
	if a.AirFallbackOffset != nil {
		config.Analysis.AirFallbackOffset = *a.AirFallbackOffset
	}
	if a.FailurePolicy != "" {
		config.Analysis.FailurePolicy = a.FailurePolicy
	}
	if a.SmoothingKernel != nil {
		config.Analysis.SmoothingKernel = *a.SmoothingKernel
	}
	if a.Workers != nil {
		config.Analysis.Workers = *a.Workers
	}

	config.Input = InputData{
		TimeFormat: yamlConfig.Input.TimeFormat,
		Columns:    yamlConfig.Input.Columns,
	}

	// Convert storage
	if yamlConfig.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{
			Path: yamlConfig.Storage.SQLite.Path,
		}
	}
	if yamlConfig.Storage.Postgres != nil {
		config.Storage.Postgres = &PostgresData{
			ConnectionString: yamlConfig.Storage.Postgres.ConnectionString,
		}
	}

	if yamlConfig.REST != nil {
		config.REST = &RESTServerData{
			Cert:       yamlConfig.REST.Cert,
			Key:        yamlConfig.REST.Key,
			Port:       yamlConfig.REST.Port,
			ListenAddr: yamlConfig.REST.ListenAddr,
		}
		if config.REST.Port == 0 {
			config.REST.Port = DefaultRESTPort
		}
		if config.REST.ListenAddr == "" {
			config.REST.ListenAddr = DefaultListenAddr
		}
	}

	if yamlConfig.Export.Format != "" {
		config.Export.Format = yamlConfig.Export.Format
	}
	config.Export.Path = yamlConfig.Export.Path
	config.Plot.Dir = yamlConfig.Plot.Dir

	return config, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags for parsing the config file
type ConfigYAML struct {
	Analysis AnalysisYAML `yaml:"analysis,omitempty"`
	Input    InputYAML    `yaml:"input,omitempty"`
	Storage  StorageYAML  `yaml:"storage,omitempty"`
	REST     *RESTYAML    `yaml:"rest,omitempty"`
	Export   ExportYAML   `yaml:"export,omitempty"`
	Plot     PlotYAML     `yaml:"plot,omitempty"`
}

type AnalysisYAML struct {
	MinPeakDistance   *int     `yaml:"min-peak-distance,omitempty"`
	MinPeakHeight     *float64 `yaml:"min-peak-height,omitempty"`
	AirFallbackOffset *int     `yaml:"air-fallback-offset,omitempty"`
	FailurePolicy     string   `yaml:"failure-policy,omitempty"`
	SmoothingKernel   *int     `yaml:"smoothing-kernel,omitempty"`
	Workers           *int     `yaml:"workers,omitempty"`
}

type InputYAML struct {
	TimeFormat string   `yaml:"time-format,omitempty"`
	Columns    []string `yaml:"columns,omitempty"`
}

type StorageYAML struct {
	SQLite   *SQLiteYAML   `yaml:"sqlite,omitempty"`
	Postgres *PostgresYAML `yaml:"postgres,omitempty"`
}

type SQLiteYAML struct {
	Path string `yaml:"path"`
}

type PostgresYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type RESTYAML struct {
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
}

type ExportYAML struct {
	Format string `yaml:"format,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

type PlotYAML struct {
	Dir string `yaml:"dir,omitempty"`
}
