package executor

import (
	"sort"

	"go.uber.org/zap"

	"github.com/flunq-io/restinvoke/internal/events"
)

// Variant names accepted in task definitions
const (
	VariantInvoke   = "InvokeTask"
	VariantREST     = "RESTInvokeTask"
	VariantSync     = "SyncInvokeTask"
	VariantJSONREST = "JSONRESTInvokeTask"
)

// FieldRules describe which output fields a variant accepts
type FieldRules struct {
	RequireVout     bool
	RequireMappings bool
	AllowMappings   bool
}

// Dependencies are shared by every task built from a Registry
type Dependencies struct {
	Invoker   Invoker
	Resolver  Resolver
	Publisher events.Publisher
	Options   Options
}

// Registry builds invoke tasks for the known variant names
type Registry struct {
	variants map[string]FieldRules
	deps     Dependencies
	logger   *zap.Logger
}

// NewRegistry creates a registry with the built-in variants
func NewRegistry(deps Dependencies, logger *zap.Logger) *Registry {
	registry := &Registry{
		variants: make(map[string]FieldRules),
		deps:     deps,
		logger:   logger,
	}

	registry.registerVariants()

	return registry
}

// registerVariants registers the generic task and the legacy variant names
func (r *Registry) registerVariants() {
	r.variants[VariantInvoke] = FieldRules{AllowMappings: true}
	r.variants[VariantREST] = FieldRules{RequireVout: true}
	r.variants[VariantSync] = FieldRules{RequireVout: true}
	r.variants[VariantJSONREST] = FieldRules{RequireMappings: true, AllowMappings: true}

	r.logger.Debug("Registered task variants",
		zap.Int("count", len(r.variants)),
		zap.Strings("variants", r.Variants()))
}

// Register adds or replaces a variant
func (r *Registry) Register(variant string, rules FieldRules) {
	r.variants[variant] = rules
	r.logger.Info("Registered custom variant", zap.String("variant", variant))
}

// Rules returns the field rules of variant. An empty name selects the
// generic task.
func (r *Registry) Rules(variant string) (FieldRules, bool) {
	if variant == "" {
		variant = VariantInvoke
	}
	rules, exists := r.variants[variant]
	return rules, exists
}

// NewTask builds a task for cfg. Unknown variant names fall back to the
// generic rules and are logged.
func (r *Registry) NewTask(cfg Config) *InvokeTask {
	rules, exists := r.Rules(cfg.Variant)
	if !exists {
		r.logger.Warn("Unknown task variant, using generic rules",
			zap.String("task_name", cfg.Name),
			zap.String("variant", cfg.Variant))
		rules = r.variants[VariantInvoke]
	}

	return NewInvokeTask(cfg, rules, r.deps, r.logger)
}

// Variants returns the registered variant names, sorted
func (r *Registry) Variants() []string {
	names := make([]string, 0, len(r.variants))
	for name := range r.variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
