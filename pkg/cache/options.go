package cache

import (
	"github.com/c360/sonto/metric"
)

// Option configures cache behavior.
type Option func(*cacheOptions)

type cacheOptions struct {
	registrar     metric.MetricsRegistrar
	metricsPrefix string
}

// WithMetrics exports cache statistics as Prometheus metrics labelled with
// prefix. A nil registrar or empty prefix disables export.
func WithMetrics(registrar metric.MetricsRegistrar, prefix string) Option {
	return func(opts *cacheOptions) {
		if registrar != nil && prefix != "" {
			opts.registrar = registrar
			opts.metricsPrefix = prefix
		}
	}
}

func applyOptions(options ...Option) *cacheOptions {
	opts := &cacheOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
