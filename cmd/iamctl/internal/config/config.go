package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/client"
)

type contextKey string

const configKey contextKey = "iamctl-config"

const (
	DefaultServerURL = "http://localhost:8080/api"
	DefaultTimeout   = 10 * time.Second
)

// GlobalConfig holds shared configuration for all iamctl commands.
// Defaults come from IAMCTL_* environment variables and are overridden by
// the root command's persistent flags. The root command injects it into the
// cobra command context in PersistentPreRunE.
type GlobalConfig struct {
	ServerURL      string
	CredentialsDSN string
	LogLevel       string
	Timeout        time.Duration
	// Token is an ephemeral bearer token that bypasses the stored session.
	Token          string
	NonInteractive bool
	Debug          bool

	ClientProvider *client.Provider
}

// Load reads the environment defaults.
func Load() *GlobalConfig {
	return &GlobalConfig{
		ServerURL:      getEnv("IAMCTL_SERVER", DefaultServerURL),
		CredentialsDSN: getEnv("IAMCTL_CREDENTIALS", ""),
		LogLevel:       getEnv("IAMCTL_LOG_LEVEL", ""),
		Timeout:        getEnvDuration("IAMCTL_TIMEOUT", DefaultTimeout),
		Token:          getEnv("IAMCTL_TOKEN", ""),
		NonInteractive: getEnvBool("IAMCTL_NON_INTERACTIVE", false),
		Debug:          getEnvBool("IAMCTL_DEBUG", false),
	}
}

// InjectConfig adds config to the cobra command context.
func InjectConfig(ctx context.Context, cfg *GlobalConfig) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from the cobra command context.
// Returns (nil, false) if config is not present.
func FromContext(ctx context.Context) (*GlobalConfig, bool) {
	cfg, ok := ctx.Value(configKey).(*GlobalConfig)
	return cfg, ok
}

// MustFromContext retrieves config from context or panics.
// This should only be used in command RunE functions where we know
// the config has been injected by the root command.
func MustFromContext(ctx context.Context) *GlobalConfig {
	cfg, ok := FromContext(ctx)
	if !ok {
		panic("iamctl: config not found in context - this is a bug in iamctl")
	}
	return cfg
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("30s") and plain seconds ("30").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	var seconds int
	if _, err := fmt.Sscanf(value, "%d", &seconds); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
