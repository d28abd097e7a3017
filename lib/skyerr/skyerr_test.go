package skyerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindMatching(t *testing.T) {
	err := Wrap(ExtractionParseFailure, "malformed literal", fmt.Errorf("unexpected token"))
	wrapped := fmt.Errorf("gradebook: %w", err)

	require.True(t, errors.Is(wrapped, ErrExtractionParseFailure))
	require.False(t, errors.Is(wrapped, ErrExtractionNotFound))
	require.Equal(t, ExtractionParseFailure, KindOf(wrapped))
	require.Equal(t, KindUnknown, KindOf(fmt.Errorf("plain")))
	require.Equal(
		t,
		"extraction parse failure: malformed literal: unexpected token",
		err.Error(),
	)
}

func TestSessionInvalidIsDistinct(t *testing.T) {
	err := New(SessionInvalid, "empty grade info payload")
	require.ErrorIs(t, err, ErrSessionInvalid)
	for _, other := range []error{
		ErrExtractionNotFound,
		ErrExtractionParseFailure,
		ErrGridKeyNotFound,
		ErrEmptyTable,
		ErrReconciliationInputInvalid,
	} {
		require.NotErrorIs(t, err, other)
	}
}
