package qkernel

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

/*
Config is the session-level configuration surface. It is resolved once when
a session starts; nothing in it is re-read per gate.
*/
type Config struct {
	PreferAccelerated    bool                 `mapstructure:"prefer_accelerated"`
	AcceleratorImagePath string               `mapstructure:"accelerator_image_path"`
	KernelLibraryPath    string               `mapstructure:"kernel_library_path"`
	KernelSymbol         string               `mapstructure:"kernel_symbol"`
	KernelTimeout        time.Duration        `mapstructure:"kernel_timeout"`
	Workers              int                  `mapstructure:"workers"`
	Breaker              CircuitBreakerConfig `mapstructure:"breaker"`
}

// CircuitBreakerConfig tunes the optional fallback breaker. MaxFailures of
// zero disables it.
type CircuitBreakerConfig struct {
	MaxFailures  int           `mapstructure:"max_failures"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`
	HalfOpenMax  int           `mapstructure:"half_open_max"`
}

func NewConfig() *Config {
	return &Config{
		PreferAccelerated:    false,
		AcceleratorImagePath: "libadf.xclbin",
		KernelLibraryPath:    "build/lib/librtd_custom_device.so",
		KernelSymbol:         "hadamard_kernel_execute_c",
		KernelTimeout:        30 * time.Second,
		Workers:              4,
		Breaker: CircuitBreakerConfig{
			MaxFailures:  0,
			ResetTimeout: time.Minute,
			HalfOpenMax:  1,
		},
	}
}

/*
LoadConfig reads path (any format viper understands) over the defaults of
NewConfig. Every key can be overridden from the environment with the
QKERNEL_ prefix, nested keys joined by an underscore, for example
QKERNEL_PREFER_ACCELERATED or QKERNEL_BREAKER_MAX_FAILURES. An empty path
loads defaults and environment only.
*/
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := NewConfig()
	v.SetDefault("prefer_accelerated", defaults.PreferAccelerated)
	v.SetDefault("accelerator_image_path", defaults.AcceleratorImagePath)
	v.SetDefault("kernel_library_path", defaults.KernelLibraryPath)
	v.SetDefault("kernel_symbol", defaults.KernelSymbol)
	v.SetDefault("kernel_timeout", defaults.KernelTimeout)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("breaker.max_failures", defaults.Breaker.MaxFailures)
	v.SetDefault("breaker.reset_timeout", defaults.Breaker.ResetTimeout)
	v.SetDefault("breaker.half_open_max", defaults.Breaker.HalfOpenMax)

	v.SetEnvPrefix("QKERNEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return cfg, nil
}
