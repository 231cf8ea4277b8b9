package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSample = Conflict("song already added")

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(errSample))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("add song: %w", errSample)))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestSentinelMatching(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", errSample)
	assert.ErrorIs(t, wrapped, errSample)
	assert.False(t, errors.Is(wrapped, Conflict("other")))
	assert.True(t, Is(wrapped, KindConflict))
	assert.False(t, Is(nil, KindConflict))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("redis down")
	err := Wrap(KindUnavailable, "load state", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "load state: redis down", err.Error())
}
