package progress

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_Describe(t *testing.T) {
	env := Wrap("loading", errors.New("shard 3 is corrupt"))

	assert.Equal(t, "loading", env.Phase)
	assert.Equal(t, "shard 3 is corrupt", env.Message)
	assert.Equal(t, "Loading failed during loading: shard 3 is corrupt", Describe(env))
}

func TestWrap_StructuralEquality(t *testing.T) {
	a := Wrap("loading", errors.New("timeout"))
	b := Wrap("loading", fmt.Errorf("timeout"))
	c := Wrap("downloading", errors.New("timeout"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestWrap_NeverNests(t *testing.T) {
	inner := Wrap("loading", errors.New("disk full"))

	// Wrapping an envelope directly returns it unchanged.
	again := Wrap("other", inner)
	assert.Equal(t, inner, again)

	// Same for an error that wraps an envelope.
	wrapped := fmt.Errorf("outer: %w", inner)
	assert.Equal(t, inner, Wrap("other", wrapped))
}

func TestWrap_SnapshotsMessage(t *testing.T) {
	err := &mutableError{msg: "first"}
	env := Wrap("loading", err)
	err.msg = "second"

	assert.Equal(t, "first", env.Message)
}

type mutableError struct{ msg string }

func (e *mutableError) Error() string { return e.msg }
