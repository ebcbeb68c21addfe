package model

import (
	"fmt"
	"strings"
)

// DecodingError reports malformed configuration or metadata. It is fatal.
type DecodingError struct {
	File    string
	Message string
}

// Error implements the error interface.
func (e *DecodingError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("decode %s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("decode: %s", e.Message)
}

// UnsupportedTypeError reports an unknown model or processor kind.
type UnsupportedTypeError struct {
	Kind string
}

// Error implements the error interface.
func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported model type: %s", e.Kind)
}

// VerificationError reports a mismatch between the parameters a model
// expects and the keys actually loaded from the weight shards.
type VerificationError struct {
	Missing []string
	Extra   []string
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing %d parameters: %s", len(e.Missing), summarize(e.Missing)))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, fmt.Sprintf("%d unexpected parameters: %s", len(e.Extra), summarize(e.Extra)))
	}
	if len(parts) == 0 {
		return "weight verification failed"
	}
	return "weight verification failed: " + strings.Join(parts, "; ")
}

// summarize keeps error messages readable for models with thousands of
// parameters.
func summarize(keys []string) string {
	const show = 5
	if len(keys) <= show {
		return strings.Join(keys, ", ")
	}
	return strings.Join(keys[:show], ", ") + ", ..."
}
