package securestats

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestErrorCode(t *testing.T) {
	err := NewError(ErrCrypto, "insufficient shares")
	require.Error(t, err)
	assert.Equal(t, ErrCrypto, CodeOf(err))
	assert.True(t, HasCode(err, ErrCrypto))
	assert.False(t, HasCode(err, ErrValidation))
	assert.Equal(t, "insufficient shares", err.Error())
}

func TestErrorWrap(t *testing.T) {
	assert.Nil(t, WrapError(ErrState, nil, ""))

	inner := xerrors.New("oops")
	err := WrapError(ErrState, inner, "compute")
	require.Error(t, err)
	assert.Equal(t, "compute: oops", err.Error())
	assert.Equal(t, ErrState, CodeOf(err))
	assert.True(t, xerrors.Is(err, inner))
}

func TestErrorFormat(t *testing.T) {
	err := Errorf(ErrValidation, "%d values, maximum is %d", 20000, 10000)
	assert.Equal(t, "20000 values, maximum is 10000", fmt.Sprintf("%v", err))
	// The verbose format carries the frame of the constructor call.
	assert.Contains(t, fmt.Sprintf("%+v", err), "error_test.go")
}

func TestCodeOfForeign(t *testing.T) {
	assert.Equal(t, ErrorCode(0), CodeOf(xerrors.New("plain")))
	assert.Equal(t, "unknown", ErrorCode(0).String())
	assert.Equal(t, "crypto", ErrCrypto.String())
}
