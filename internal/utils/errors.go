package utils

import "fmt"

// The forecasting pipeline fails explicitly rather than substituting
// defaults for a bad fit. Every error below is a recoverable-by-caller
// condition; none is process-fatal. Callers match them with errors.As.

// InsufficientDataError indicates a series has too few observations to fit
// any candidate model.
type InsufficientDataError struct {
	Variable     string
	Observations int
	Required     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %q: %d observations, need at least %d",
		e.Variable, e.Observations, e.Required)
}

// NewInsufficientDataError creates an InsufficientDataError for a variable.
func NewInsufficientDataError(variable string, observations, required int) error {
	return &InsufficientDataError{Variable: variable, Observations: observations, Required: required}
}

// AllMissingError indicates a series is empty after cleaning.
type AllMissingError struct {
	Variable string
}

func (e *AllMissingError) Error() string {
	return fmt.Sprintf("series %q has no usable observations after cleaning", e.Variable)
}

// NewAllMissingError creates an AllMissingError for a variable.
func NewAllMissingError(variable string) error {
	return &AllMissingError{Variable: variable}
}

// ModelSelectionError indicates no candidate model order could be fitted,
// typically a degenerate (constant) series or a singular covariance matrix.
type ModelSelectionError struct {
	Family string
	Reason string
}

func (e *ModelSelectionError) Error() string {
	return fmt.Sprintf("%s model selection failed: %s", e.Family, e.Reason)
}

// NewModelSelectionError creates a ModelSelectionError.
func NewModelSelectionError(family, format string, args ...interface{}) error {
	return &ModelSelectionError{Family: family, Reason: fmt.Sprintf(format, args...)}
}

// InvalidHorizonError indicates a non-positive forecast horizon.
type InvalidHorizonError struct {
	Horizon int
}

func (e *InvalidHorizonError) Error() string {
	return fmt.Sprintf("forecast horizon must be a positive integer, got %d", e.Horizon)
}

// NewInvalidHorizonError creates an InvalidHorizonError.
func NewInvalidHorizonError(horizon int) error {
	return &InvalidHorizonError{Horizon: horizon}
}

// FitConvergenceError indicates model fitting failed to converge even after
// falling back to the next simpler candidate order.
type FitConvergenceError struct {
	Family   string
	Attempts int
	Reason   string
}

func (e *FitConvergenceError) Error() string {
	return fmt.Sprintf("%s fit failed to converge after %d attempt(s): %s",
		e.Family, e.Attempts, e.Reason)
}

// NewFitConvergenceError creates a FitConvergenceError.
func NewFitConvergenceError(family string, attempts int, reason string) error {
	return &FitConvergenceError{Family: family, Attempts: attempts, Reason: reason}
}

// InsufficientHoldoutError indicates the back-test holdout would leave too
// little training data to satisfy the minimum-observation invariant.
type InsufficientHoldoutError struct {
	Holdout   int
	Remaining int
	Required  int
}

func (e *InsufficientHoldoutError) Error() string {
	return fmt.Sprintf("holdout of %d leaves %d training observations, need at least %d",
		e.Holdout, e.Remaining, e.Required)
}

// NewInsufficientHoldoutError creates an InsufficientHoldoutError.
func NewInsufficientHoldoutError(holdout, remaining, required int) error {
	return &InsufficientHoldoutError{Holdout: holdout, Remaining: remaining, Required: required}
}
