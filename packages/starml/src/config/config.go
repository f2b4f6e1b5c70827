package config

import (
	"log/slog"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/backoff"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/converters"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/layout"
)

// DefaultExtension is the file extension of markup documents
const DefaultExtension = ".sml"

// EngineConfig represents the binding engine configuration
type EngineConfig struct {
	BackoffRule   backoff.Rule
	Logger        *slog.Logger
	Extension     string
	LayoutTypes   bool
	ConverterOpts []converters.Option
}

// NewEngineConfig creates a new EngineConfig with optional parameters
func NewEngineConfig(opts ...EngineConfigOption) *EngineConfig {
	config := &EngineConfig{
		BackoffRule: backoff.DefaultRule,
		Logger:      slog.Default(),
		Extension:   DefaultExtension,
		LayoutTypes: true,
	}

	for _, opt := range opts {
		opt(config)
	}

	return config
}

// EngineConfigOption is a function that modifies EngineConfig
type EngineConfigOption func(*EngineConfig)

// WithBackoffRule sets the rule delaying rebuilds of failing documents
func WithBackoffRule(rule backoff.Rule) EngineConfigOption {
	return func(c *EngineConfig) {
		c.BackoffRule = rule
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) EngineConfigOption {
	return func(c *EngineConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithExtension sets the markup file extension
func WithExtension(extension string) EngineConfigOption {
	return func(c *EngineConfig) {
		c.Extension = NormalizeExtension(extension)
	}
}

// WithoutLayoutTypes skips registering the layout value converters
func WithoutLayoutTypes() EngineConfigOption {
	return func(c *EngineConfig) {
		c.LayoutTypes = false
	}
}

// WithConverterOptions passes options to the conversion registry
func WithConverterOptions(opts ...converters.Option) EngineConfigOption {
	return func(c *EngineConfig) {
		c.ConverterOpts = append(c.ConverterOpts, opts...)
	}
}

// NewRegistry creates a conversion registry for this configuration
func (c *EngineConfig) NewRegistry() *converters.Registry {
	opts := append([]converters.Option{converters.WithLogger(c.Logger)}, c.ConverterOpts...)
	registry := converters.NewRegistry(opts...)
	if c.LayoutTypes {
		layout.RegisterConverters(registry)
	}
	return registry
}

// NormalizeExtension returns extension with a leading dot, or the default when empty
func NormalizeExtension(extension string) string {
	if extension == "" {
		return DefaultExtension
	}
	if extension[0] != '.' {
		return "." + extension
	}
	return extension
}
