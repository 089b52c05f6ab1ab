package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("persist: %w", New(ErrQuota, "persist", cause))

	require.ErrorIs(t, err, ErrQuota)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrStorage)
	require.Equal(t, ErrQuota, Kind(err))
	require.Contains(t, err.Error(), "disk full")
}

func TestErrorWithoutCause(t *testing.T) {
	err := New(ErrNotFound, "get subscription 7", nil)

	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, "get subscription 7: not found", err.Error())
}

func TestFormatError(t *testing.T) {
	err := fmt.Errorf("import: %w", &FormatError{Missing: []string{"version", "subscriptions"}})

	require.ErrorIs(t, err, ErrFormat)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, []string{"version", "subscriptions"}, fe.Missing)
	require.Contains(t, err.Error(), "missing version, subscriptions")
}

func TestKindUnknown(t *testing.T) {
	require.Nil(t, Kind(errors.New("plain")))
	require.Nil(t, Kind(nil))
}
