package formflow

import "log/slog"

// formConfig holds construction-time configuration for a form.
type formConfig struct {
	id           string
	logger       *slog.Logger
	debug        bool
	metrics      bool
	tracing      bool
	hub          HubConfig
	errorHandler func(error)
	plugins      []Plugin
}

// defaultFormConfig returns the default form configuration.
func defaultFormConfig() formConfig {
	return formConfig{
		logger: slog.Default(),
		hub:    DefaultHubConfig,
	}
}

// Option configures form construction.
type Option func(*formConfig)

// WithID sets the form identifier.
// Default: auto-generated UUID.
func WithID(id string) Option {
	return func(c *formConfig) {
		if id != "" {
			c.id = id
		}
	}
}

// WithLogger sets the logger. It is enriched with the form ID.
// Default: slog.Default(). Pass nil to disable logging entirely.
func WithLogger(logger *slog.Logger) Option {
	return func(c *formConfig) {
		c.logger = logger
	}
}

// WithDebug enables per-event and per-field debug logging. Lifecycle
// logging (validation runs, snapshot saves) is always on when a logger
// is configured; this adds the high-volume paths.
// Default: false
func WithDebug(enabled bool) Option {
	return func(c *formConfig) {
		c.debug = enabled
	}
}

// WithMetrics enables OpenTelemetry metrics.
// Default: false (no-op recorder)
//
// Uses the global OTel meter provider; configure it before creating the
// form.
func WithMetrics(enabled bool) Option {
	return func(c *formConfig) {
		c.metrics = enabled
	}
}

// WithTracing enables OpenTelemetry spans around validation runs.
// Default: false (no-op span manager)
//
// Uses the global OTel tracer provider; configure it before creating
// the form.
func WithTracing(enabled bool) Option {
	return func(c *formConfig) {
		c.tracing = enabled
	}
}

// WithHubConfig overrides event delivery configuration.
func WithHubConfig(cfg HubConfig) Option {
	return func(c *formConfig) {
		c.hub = cfg
	}
}

// WithErrorHandler sets the sink for errors that have no caller to
// return to: deferred event deliveries and asynchronous validator
// failures. Default: log at error level.
func WithErrorHandler(fn func(error)) Option {
	return func(c *formConfig) {
		c.errorHandler = fn
	}
}

// WithPlugins registers plugins to run during construction, in order,
// after the core event bindings are in place.
func WithPlugins(plugins ...Plugin) Option {
	return func(c *formConfig) {
		c.plugins = append(c.plugins, plugins...)
	}
}
