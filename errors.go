/*
Copyright © 2019 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

package aerosol

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates invalid model parameters. It is fatal and
	// is returned when a model component is constructed.
	ErrConfiguration = errors.New("aerosol: invalid configuration")

	// ErrPlausibility indicates that a field left its configured physical bounds.
	ErrPlausibility = errors.New("aerosol: plausibility limits exceeded")

	// ErrStrategyNotConfigured is returned when a process is requested
	// whose closure has not been set.
	ErrStrategyNotConfigured = errors.New("aerosol: strategy not configured")
)

// ConfigurationError describes an invalid configuration parameter.
type ConfigurationError struct {
	Parameter string
	Value     interface{}
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("aerosol: invalid %s (%v): %s", e.Parameter, e.Value, e.Reason)
}

// Unwrap allows errors.Is(err, ErrConfiguration).
func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func configErr(param string, val interface{}, format string, a ...interface{}) error {
	return &ConfigurationError{Parameter: param, Value: val, Reason: fmt.Sprintf(format, a...)}
}

// PlausibilityViolation describes a field value that is outside of its
// configured limits.
type PlausibilityViolation struct {
	Field      string
	Cell       int
	Value      float64
	Min, Max   float64
	Time       float64
	Checkpoint string // location of the state written before halting, if any
}

func (e *PlausibilityViolation) Error() string {
	s := fmt.Sprintf("aerosol: %s=%g in cell %d at t=%gs is outside of [%g, %g]",
		e.Field, e.Value, e.Cell, e.Time, e.Min, e.Max)
	if e.Checkpoint != "" {
		s += "; state written to " + e.Checkpoint
	}
	return s
}

// Unwrap allows errors.Is(err, ErrPlausibility).
func (e *PlausibilityViolation) Unwrap() error { return ErrPlausibility }

func notConfigured(family string) error {
	return fmt.Errorf("%w: %s", ErrStrategyNotConfigured, family)
}
