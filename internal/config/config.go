// Package config loads application configuration from config.yaml, .env, and
// ISOCHRONER_* environment variables, and owns global logger setup.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Routing RoutingConfig `yaml:"routing" mapstructure:"routing"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Convert ConvertConfig `yaml:"convert" mapstructure:"convert"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// RoutingConfig holds routing service settings.
type RoutingConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Profile     string `yaml:"profile" mapstructure:"profile"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// BatchConfig configures the batch processor.
type BatchConfig struct {
	Shapefile   string   `yaml:"shapefile" mapstructure:"shapefile"`
	Encoding    string   `yaml:"encoding" mapstructure:"encoding"`
	OutFile     string   `yaml:"out_file" mapstructure:"out_file"`
	MatchingVar string   `yaml:"matching_var" mapstructure:"matching_var"`
	Durations   []int    `yaml:"durations" mapstructure:"durations"`
	KeepCols    []string `yaml:"keep_cols" mapstructure:"keep_cols"`
	BatchSize   int      `yaml:"batch_size" mapstructure:"batch_size"`
	StdDevs     float64  `yaml:"std_devs" mapstructure:"std_devs"`
	Tolerance   float64  `yaml:"tolerance" mapstructure:"tolerance"`
	SwapXY      bool     `yaml:"swap_xy" mapstructure:"swap_xy"`
}

// ConvertConfig configures format exports.
type ConvertConfig struct {
	Format string `yaml:"format" mapstructure:"format"`
	CRS    int    `yaml:"crs" mapstructure:"crs"`
}

// FetchConfig configures remote shapefile downloads.
type FetchConfig struct {
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ISOCHRONER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("routing.profile", "driving")
	v.SetDefault("routing.timeout_secs", 30)
	v.SetDefault("batch.out_file", "isochrones.csv")
	v.SetDefault("batch.matching_var", "GEOID")
	v.SetDefault("batch.durations", []int{15})
	v.SetDefault("batch.batch_size", 5)
	v.SetDefault("batch.std_devs", 2.0)
	v.SetDefault("batch.tolerance", 2.0)
	v.SetDefault("convert.crs", 4326)
	v.SetDefault("fetch.temp_dir", "/tmp/isochroner")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
