package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/LdDl/nkdvprep"
)

const (
	NetworkFormatCSV     = "csv"
	NetworkFormatGeoJSON = "geojson"
	NetworkFormatOSM     = "osm"

	DirectionXTolerance       = "x-tolerance"
	DirectionEndpointDistance = "endpoint-distance"

	LogFormatJsonValue = "json"
	LogFormatTextValue = "text"
)

var (
	Cfg  *Config
	once sync.Once
)

// NewConfig returns process-wide configuration with defaults applied
func NewConfig() *Config {
	once.Do(
		func() {
			Cfg = Default()
		},
	)
	return Cfg
}

// Default returns new configuration with default values
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  zerolog.LevelInfoValue,
			Format: LogFormatTextValue,
		},
		Network: NetworkConfig{
			Format: NetworkFormatCSV,
			CRS:    nkdvprep.CRS_PLANAR.String(),
		},
		Points: PointsConfig{
			CRS:          nkdvprep.CRS_WGS84.String(),
			MaxSkipRatio: nkdvprep.DEFAULT_MAX_SKIP_RATIO,
		},
		Engine: EngineConfig{
			Direction: DirectionXTolerance,
			Tolerance: nkdvprep.DEFAULT_DIRECTION_TOLERANCE,
		},
		Output: OutputConfig{
			Precision: nkdvprep.SHORTEST_PRECISION,
		},
	}
}

type Config struct {
	Log     LogConfig     `mapstructure:"log" yaml:"log" json:"log"`
	Network NetworkConfig `mapstructure:"network" yaml:"network" json:"network"`
	Points  PointsConfig  `mapstructure:"points" yaml:"points" json:"points"`
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine" json:"engine"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output" json:"output"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

type NetworkConfig struct {
	// csv, geojson or osm
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	// Nodes and Edges are used by csv format
	Nodes string `mapstructure:"nodes" yaml:"nodes" json:"nodes"`
	Edges string `mapstructure:"edges" yaml:"edges" json:"edges"`
	// File is used by geojson and osm formats
	File string `mapstructure:"file" yaml:"file" json:"file"`
	// Ignored by osm format: OSM data is always wgs84
	CRS         string   `mapstructure:"crs" yaml:"crs" json:"crs"`
	HighwayTags []string `mapstructure:"highway_tags" yaml:"highway_tags" json:"highway_tags"`
}

type PointsConfig struct {
	File         string  `mapstructure:"file" yaml:"file" json:"file"`
	CRS          string  `mapstructure:"crs" yaml:"crs" json:"crs"`
	MaxSkipRatio float64 `mapstructure:"max_skip_ratio" yaml:"max_skip_ratio" json:"max_skip_ratio"`
}

type EngineConfig struct {
	Direction    string  `mapstructure:"direction" yaml:"direction" json:"direction"`
	Tolerance    float64 `mapstructure:"tolerance" yaml:"tolerance" json:"tolerance"`
	Workers      int     `mapstructure:"workers" yaml:"workers" json:"workers"`
	IndexSpacing float64 `mapstructure:"index_spacing" yaml:"index_spacing" json:"index_spacing"`
}

type OutputConfig struct {
	File string `mapstructure:"file" yaml:"file" json:"file"`
	// Negative value means shortest exact representation
	Precision int    `mapstructure:"precision" yaml:"precision" json:"precision"`
	EdgesCSV  string `mapstructure:"edges_csv" yaml:"edges_csv" json:"edges_csv"`
}

// Validate checks that configuration is complete and consistent
func (cfg *Config) Validate() error {
	switch cfg.Log.Level {
	case zerolog.LevelDebugValue, zerolog.LevelInfoValue, zerolog.LevelWarnValue:
	default:
		return fmt.Errorf("unknown log level '%s'", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case LogFormatJsonValue, LogFormatTextValue:
	default:
		return fmt.Errorf("unknown log format '%s'", cfg.Log.Format)
	}

	switch strings.ToLower(cfg.Network.Format) {
	case NetworkFormatCSV:
		if cfg.Network.Nodes == "" || cfg.Network.Edges == "" {
			return fmt.Errorf("network.nodes and network.edges are required for '%s' network format", NetworkFormatCSV)
		}
	case NetworkFormatGeoJSON, NetworkFormatOSM:
		if cfg.Network.File == "" {
			return fmt.Errorf("network.file is required for '%s' network format", cfg.Network.Format)
		}
	default:
		return fmt.Errorf("unknown network format '%s'", cfg.Network.Format)
	}
	if _, err := nkdvprep.ParseCRS(cfg.Network.CRS); err != nil {
		return fmt.Errorf("network.crs: %w", err)
	}

	if cfg.Points.File == "" {
		return fmt.Errorf("points.file is required")
	}
	if _, err := nkdvprep.ParseCRS(cfg.Points.CRS); err != nil {
		return fmt.Errorf("points.crs: %w", err)
	}
	if cfg.Points.MaxSkipRatio < 0 || cfg.Points.MaxSkipRatio > 1 {
		return fmt.Errorf("points.max_skip_ratio must be in [0, 1], got %f", cfg.Points.MaxSkipRatio)
	}

	switch cfg.Engine.Direction {
	case DirectionXTolerance:
		if cfg.Engine.Tolerance < 0 {
			return fmt.Errorf("engine.tolerance must be non-negative, got %f", cfg.Engine.Tolerance)
		}
	case DirectionEndpointDistance:
	default:
		return fmt.Errorf("unknown direction test '%s'", cfg.Engine.Direction)
	}
	if cfg.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must be non-negative, got %d", cfg.Engine.Workers)
	}
	if cfg.Engine.IndexSpacing < 0 {
		return fmt.Errorf("engine.index_spacing must be non-negative, got %f", cfg.Engine.IndexSpacing)
	}

	if cfg.Output.File == "" {
		return fmt.Errorf("output.file is required")
	}
	return nil
}

// DirectionTest returns direction test described by configuration
func (cfg *EngineConfig) DirectionTest() nkdvprep.DirectionTest {
	if cfg.Direction == DirectionEndpointDistance {
		return nkdvprep.EndpointDistance{}
	}
	return nkdvprep.XTolerance{Tolerance: cfg.Tolerance}
}
