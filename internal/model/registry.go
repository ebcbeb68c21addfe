package model

import "sort"

// Factory instantiates a model from its decoded configuration.
type Factory func(Config) (Model, error)

var registry = map[string]Factory{}

// Register associates a model_type with a factory. Later registrations of
// the same type win; registration normally happens from init functions.
func Register(modelType string, factory Factory) {
	registry[modelType] = factory
}

// New instantiates the model for cfg.ModelType. Unknown types fail with an
// *UnsupportedTypeError.
func New(cfg Config) (Model, error) {
	factory, ok := registry[cfg.ModelType]
	if !ok {
		return nil, &UnsupportedTypeError{Kind: cfg.ModelType}
	}
	return factory(cfg)
}

// RegisteredTypes returns the known model_type names, sorted.
func RegisteredTypes() []string {
	types := make([]string, 0, len(registry))
	for name := range registry {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}
