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

// Package conductivity provides models for the thermal conductivity of
// the gas phase.
package conductivity

import (
	"fmt"
	"math"

	"github.com/spatialmodel/aerosol"
)

// New returns the conductivity model with the given name. Valid names are
// "constant" and "sutherland".
func New(name string, p aerosol.Params) (aerosol.Conductivity, error) {
	switch name {
	case "constant":
		k, err := p.Positive("K", 0.0257)
		if err != nil {
			return nil, err
		}
		return Constant(k), nil
	case "sutherland":
		return newSutherland(p)
	}
	return nil, fmt.Errorf("conductivity: invalid model %q; valid options are constant and sutherland", name)
}

// Constant is a fixed conductivity [W/m/K].
type Constant float64

// K implements aerosol.Conductivity.
func (k Constant) K(_, _ float64) float64 { return float64(k) }

// Sutherland is Sutherland's law for the temperature dependence of the
// conductivity. The defaults are for air.
type Sutherland struct {
	K0 float64 // conductivity at T0 [W/m/K]
	T0 float64 // reference temperature [K]
	S  float64 // Sutherland temperature [K]
}

func newSutherland(p aerosol.Params) (*Sutherland, error) {
	s := new(Sutherland)
	var err error
	if s.K0, err = p.Positive("K0", 0.0241); err != nil {
		return nil, err
	}
	if s.T0, err = p.Positive("T0", 273.15); err != nil {
		return nil, err
	}
	if s.S, err = p.Positive("S", 194); err != nil {
		return nil, err
	}
	return s, nil
}

// K implements aerosol.Conductivity.
func (s *Sutherland) K(T, _ float64) float64 {
	if T <= 0 {
		return 0
	}
	return s.K0 * math.Pow(T/s.T0, 1.5) * (s.T0 + s.S) / (T + s.S)
}
