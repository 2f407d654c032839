package feather

type options struct {
	m                int
	efConstruction   int
	efSearch         int
	oversample       int
	randomSeed       int64
	heuristic        bool
	logger           *Logger
	metricsCollector MetricsCollector
}

func defaultOptions() options {
	return options{
		m:                16,
		efConstruction:   200,
		efSearch:         0, // derived from k
		oversample:       8,
		randomSeed:       1,
		heuristic:        true,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
}

// Option configures DB constructor behavior.
type Option func(*options)

// WithM configures the number of graph connections established per node
// during construction.
func WithM(m int) Option {
	return func(o *options) {
		o.m = m
	}
}

// WithEFConstruction configures the beam width used while building the
// graph. Larger values improve recall at the cost of insert time.
func WithEFConstruction(ef int) Option {
	return func(o *options) {
		o.efConstruction = ef
	}
}

// WithEFSearch configures the beam width used by searches. Zero derives
// the width from k per query.
func WithEFSearch(ef int) Option {
	return func(o *options) {
		o.efSearch = ef
	}
}

// WithOversample configures the candidate over-fetch factor used when a
// query carries a filter or scoring config.
func WithOversample(factor int) Option {
	return func(o *options) {
		if factor > 0 {
			o.oversample = factor
		}
	}
}

// WithHeuristic toggles diversity-favoring neighbor selection during
// graph construction. Disabling it falls back to closest-first selection.
func WithHeuristic(enabled bool) Option {
	return func(o *options) {
		o.heuristic = enabled
	}
}

// WithRandomSeed configures the graph level generator seed. The default
// is fixed, so databases built with the same inputs in the same order are
// identical.
func WithRandomSeed(seed int64) Option {
	return func(o *options) {
		o.randomSeed = seed
	}
}

// WithLogger configures the logger. If nil is passed, logging is disabled.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithMetricsCollector configures the metrics collector.
// If nil is passed, metrics collection is disabled.
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(o *options) {
		if collector == nil {
			collector = NoopMetricsCollector{}
		}
		o.metricsCollector = collector
	}
}
