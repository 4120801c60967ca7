package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsufficientDataError(t *testing.T) {
	err := NewInsufficientDataError("deal_volume", 3, 24)
	assert.Contains(t, err.Error(), "deal_volume")
	assert.Contains(t, err.Error(), "3 observations")

	var target *InsufficientDataError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 24, target.Required)

	// matches through wrapping
	wrapped := fmt.Errorf("pipeline: %w", err)
	assert.ErrorAs(t, wrapped, &target)
}

func TestAllMissingError(t *testing.T) {
	err := NewAllMissingError("valuations")
	var target *AllMissingError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "valuations", target.Variable)
}

func TestModelSelectionError(t *testing.T) {
	err := NewModelSelectionError("VAR", "no lag up to %d converged", 6)
	assert.Equal(t, "VAR model selection failed: no lag up to 6 converged", err.Error())

	var target *ModelSelectionError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "VAR", target.Family)
}

func TestInvalidHorizonError(t *testing.T) {
	err := NewInvalidHorizonError(-4)
	var target *InvalidHorizonError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, -4, target.Horizon)
}

func TestFitConvergenceError(t *testing.T) {
	err := NewFitConvergenceError("ARIMA", 2, "non-finite coefficients")
	assert.Contains(t, err.Error(), "2 attempt(s)")

	var target *FitConvergenceError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 2, target.Attempts)
}

func TestInsufficientHoldoutError(t *testing.T) {
	err := NewInsufficientHoldoutError(3, 21, 24)
	var target *InsufficientHoldoutError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 3, target.Holdout)
	assert.Equal(t, 21, target.Remaining)
	assert.Equal(t, 24, target.Required)
}

func TestErrorTypesAreDistinct(t *testing.T) {
	var dataErr *InsufficientDataError
	assert.False(t, errors.As(NewAllMissingError("x"), &dataErr))
}
