package errors_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/amani-finance/amani-go/internal/errors"
)

func TestWrapf(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "no-op on nil"))

	err := apperrors.Wrapf(apperrors.ErrRemote, "GET %s", "contents")
	require.Error(t, err)
	require.Contains(t, err.Error(), "GET contents")
	require.True(t, apperrors.Is(err, apperrors.ErrRemote))
	require.False(t, apperrors.Is(err, apperrors.ErrNoSession))
}
