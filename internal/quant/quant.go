// Package quant decides which quantization parameters apply to which tensor
// paths and expands grouped-affine packed weights back to float32.
//
// A quantized tensor is stored as three table entries: the packed weight
// under its own path plus "<path>.scales" and "<path>.biases" companions.
// Only paths whose scales companion is present are ever quantized.
package quant

import (
	"fmt"
	"sort"
	"strings"
)

// Companion key suffixes next to a quantized weight.
const (
	ScalesSuffix = ".scales"
	BiasesSuffix = ".biases"
)

// Spec describes grouped-affine quantization parameters.
type Spec struct {
	GroupSize int `json:"group_size"`
	Bits      int `json:"bits"`
}

// Validate checks that the spec's parameters are representable.
func (s Spec) Validate() error {
	if s.GroupSize <= 0 {
		return fmt.Errorf("invalid group size: %d", s.GroupSize)
	}
	switch s.Bits {
	case 2, 4, 8:
		return nil
	default:
		return fmt.Errorf("unsupported bit width: %d", s.Bits)
	}
}

// Resolver looks up a per-layer spec for a tensor path. The second return
// reports whether the layer has one.
type Resolver func(path string) (Spec, bool)

// ScalesKey returns the companion key holding a path's group scales.
func ScalesKey(path string) string {
	return path + ScalesSuffix
}

// BiasesKey returns the companion key holding a path's group biases.
func BiasesKey(path string) string {
	return path + BiasesSuffix
}

// IsCompanion reports whether key is a scales or biases companion entry.
func IsCompanion(key string) bool {
	return strings.HasSuffix(key, ScalesSuffix) || strings.HasSuffix(key, BiasesSuffix)
}

// BasePath strips a companion suffix, returning the owning weight's path.
func BasePath(key string) string {
	key = strings.TrimSuffix(key, ScalesSuffix)
	return strings.TrimSuffix(key, BiasesSuffix)
}

// Plan resolves the spec for every path in keys that has a scales companion
// also present in keys. Resolution order per path: the per-layer resolver if
// provided, else the global spec, else the path stays unquantized. Paths
// without a scales companion are never planned, even under a global spec.
func Plan(keys []string, global *Spec, perLayer Resolver) map[string]Spec {
	present := make(map[string]bool, len(keys))
	for _, key := range keys {
		present[key] = true
	}

	plan := make(map[string]Spec)
	for _, key := range keys {
		if IsCompanion(key) || !present[ScalesKey(key)] {
			continue
		}
		if perLayer != nil {
			if spec, ok := perLayer(key); ok {
				plan[key] = spec
				continue
			}
		}
		if global != nil {
			plan[key] = *global
		}
	}
	return plan
}

// PlannedPaths returns the planned paths in deterministic order.
func PlannedPaths(plan map[string]Spec) []string {
	paths := make([]string, 0, len(plan))
	for path := range plan {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
