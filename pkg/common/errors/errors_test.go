package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSample = New("sample")

func TestWrapKeepsSentinel(t *testing.T) {
	err := Wrap(KindDecode, "read", fmt.Errorf("context: %w", errSample))
	assert.True(t, Is(err, errSample))
	assert.Equal(t, KindDecode, KindOf(err))
	assert.Equal(t, "read: decode: context: sample", err.Error())
}

func TestWrapDoesNotReclassify(t *testing.T) {
	inner := Wrap(KindCrypto, "sign", errSample)
	outer := Wrap(KindInputIO, "round2", inner)
	assert.Equal(t, KindCrypto, KindOf(outer))
	assert.Same(t, inner, outer)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(KindNetwork, "submit", nil))
	assert.Equal(t, KindUnknown, KindOf(errSample))
}
