// Package config loads the run configuration from a file, the environment
// and an optional .env file, and validates it.
//
// Every key can be overridden by an environment variable with the LBR_
// prefix and dots replaced by underscores, e.g. LBR_SOLVER_MAX_ITERATIONS.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/contactkeval/lets-be-rational/internal/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LBR"

// Config is the top-level configuration.
type Config struct {
	Log     logger.Config `mapstructure:"log"`
	Solver  SolverConfig  `mapstructure:"solver"`
	Chain   ChainConfig   `mapstructure:"chain"`
	Massive MassiveConfig `mapstructure:"massive"`
	Server  ServerConfig  `mapstructure:"server"`
}

// SolverConfig controls the implied volatility refinement.
type SolverConfig struct {
	MaxIterations int `mapstructure:"max_iterations" validate:"gte=0,lte=64"`
}

// ChainConfig describes one option chain evaluation.
type ChainConfig struct {
	Underlying  string `mapstructure:"underlying"  validate:"required"`
	Provider    string `mapstructure:"provider"    validate:"oneof=synthetic csv massive"`
	Input       string `mapstructure:"input"       validate:"required_if=Provider csv"`
	AsOf        string `mapstructure:"as_of"       validate:"omitempty,datetime=2006-01-02"`
	Concurrency int    `mapstructure:"concurrency" validate:"gte=1,lte=1024"`
	ReportDir   string `mapstructure:"report_dir"`
	Seed        int64  `mapstructure:"seed"`
	Count       int    `mapstructure:"count"       validate:"gte=0"`
}

// MassiveConfig configures the Massive (formerly Polygon) REST provider.
type MassiveConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"  validate:"gte=0"`
	Retries int           `mapstructure:"retries"  validate:"gte=0,lte=10"`
}

// ServerConfig configures the REST mode.
type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// setDefaults registers the defaults on v.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)

	v.SetDefault("solver.max_iterations", 2)

	v.SetDefault("chain.underlying", "SPY")
	v.SetDefault("chain.provider", "synthetic")
	v.SetDefault("chain.input", "")
	v.SetDefault("chain.as_of", "")
	v.SetDefault("chain.seed", 0)
	v.SetDefault("chain.concurrency", 8)
	v.SetDefault("chain.report_dir", "reports")
	v.SetDefault("chain.count", 200)

	v.SetDefault("massive.base_url", "https://api.massive.com")
	v.SetDefault("massive.api_key", "")
	v.SetDefault("massive.timeout", 60*time.Second)
	v.SetDefault("massive.retries", 3)

	v.SetDefault("server.addr", ":8080")
}

// Load reads path (any format viper understands; empty for defaults only),
// applies .env and LBR_* overrides and validates the result.
func Load(path string) (*Config, error) {
	// A missing .env is normal; anything else is worth reporting.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		logger.Debugf("config loaded from %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	// The Massive key is also accepted under the names the providers document.
	if cfg.Massive.APIKey == "" {
		cfg.Massive.APIKey = firstNonEmpty(os.Getenv("MASSIVE_API_KEY"), os.Getenv("POLYGON_API_KEY"))
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}
