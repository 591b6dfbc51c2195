// Package collector defines the Collector contract every capability
// implements (C4) and the registry mapping capabilities to collectors
// and their default configs (§4.4, §6).
package collector

import (
	"context"

	"github.com/sentrywatch/threatwatch/internal/models"
)

// Publisher is handed to a Collector's Run method. Implementations push
// progress/findings/logs to the finding bus and observer registry without
// letting a slow or dead subscriber block collection work (§4.4).
type Publisher interface {
	// Progress reports pct in [0,100] monotonically non-decreasing within
	// a run, with a human-readable message.
	Progress(pct int, message string)
	// Finding appends f to the bus and emits it to any observer exactly
	// once; f must not be mutated after this call (§3: findings are
	// immutable once published).
	Finding(f *models.Finding)
	// Log appends a structured execution-log entry to the job.
	Log(level, msg string, data map[string]interface{})
	// Done reports whether the orchestrator has signalled cancellation;
	// collectors check this at loop boundaries and after each network
	// round-trip (§4.4, §5).
	Done() <-chan struct{}
}

// Collector implements one capability's collection logic against one
// target (§4.4, bit-exact with §6).
type Collector interface {
	// Run executes the collector's algorithm for job, reporting progress
	// and findings through publish, and returns every finding produced
	// (so non-streaming callers can use the same collector). Run must
	// return promptly once publish.Done() is closed, keeping whatever
	// partial findings it already has.
	Run(ctx context.Context, job *models.Job, publish Publisher) ([]*models.Finding, error)
}

// CollectorFunc adapts a plain function to the Collector interface.
type CollectorFunc func(ctx context.Context, job *models.Job, publish Publisher) ([]*models.Finding, error)

// Run implements Collector.
func (f CollectorFunc) Run(ctx context.Context, job *models.Job, publish Publisher) ([]*models.Finding, error) {
	return f(ctx, job, publish)
}

// Registry maps a capability to its collector and default job config.
type Registry struct {
	collectors     map[models.Capability]Collector
	defaultConfigs map[models.Capability]map[string]interface{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		collectors:     map[models.Capability]Collector{},
		defaultConfigs: map[models.Capability]map[string]interface{}{},
	}
}

// Register associates a capability with its collector and default config.
// The default config is merged underneath any job-supplied config by the
// orchestrator at job-creation time (§4.13 step 2).
func (r *Registry) Register(cap models.Capability, c Collector, defaultConfig map[string]interface{}) {
	r.collectors[cap] = c
	if defaultConfig == nil {
		defaultConfig = map[string]interface{}{}
	}
	r.defaultConfigs[cap] = defaultConfig
}

// Lookup returns the collector registered for cap, or (nil, false).
func (r *Registry) Lookup(cap models.Capability) (Collector, bool) {
	c, ok := r.collectors[cap]
	return c, ok
}

// DefaultConfig returns a copy of cap's default config map.
func (r *Registry) DefaultConfig(cap models.Capability) map[string]interface{} {
	defaults := r.defaultConfigs[cap]
	out := make(map[string]interface{}, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	return out
}

// MergeConfig overlays override atop the capability's default config,
// per §4.13 step 2 ("Merge config over capability default_config").
func (r *Registry) MergeConfig(cap models.Capability, override map[string]interface{}) map[string]interface{} {
	merged := r.DefaultConfig(cap)
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
