package grovedberr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfDirect(t *testing.T) {
	err := PathNotFound("missing %s", "a/b")
	require.Equal(t, KindPathNotFound, KindOf(err))
}

func TestKindOfUnknownForPlainError(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(errors.New("boom")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := StorageError(cause, "writing batch")
	require.ErrorIs(t, err, cause, "errors.Is should see through to the wrapped cause")
	require.Equal(t, KindStorageError, KindOf(err))
}

func TestIsMatchesByKindOnly(t *testing.T) {
	a := PathNotFound("first")
	b := PathNotFound("second")
	require.ErrorIs(t, a, b, "two errors of the same Kind should satisfy errors.Is")

	c := CyclicReference("cycle")
	require.False(t, errors.Is(a, c), "errors of different Kind should not satisfy errors.Is")
}

func TestErrorMessageIncludesKindAndCause(t *testing.T) {
	cause := errors.New("eof")
	err := StorageError(cause, "reading key %x", []byte{0x01})
	require.NotEmpty(t, err.Error())
	require.Contains(t, err.Error(), "StorageError")
	require.Contains(t, err.Error(), "eof")
}
