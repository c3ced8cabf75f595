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

// Package drift provides models for the velocity of droplets relative to
// the carrier gas.
package drift

import (
	"fmt"

	"github.com/spatialmodel/aerosol"
)

// New returns the drift model with the given name. Valid names are "none"
// and "stokes".
func New(name string, p aerosol.Params, mix aerosol.Mixture) (aerosol.Drift, error) {
	switch name {
	case "none", "":
		return None{}, nil
	case "stokes":
		g, err := p.Floats("g", []float64{0, 0, -9.81})
		if err != nil {
			return nil, err
		}
		if len(g) != 3 {
			return nil, &aerosol.ConfigurationError{Parameter: "g", Value: g, Reason: "gravity must have three components"}
		}
		return &Stokes{G: [3]float64{g[0], g[1], g[2]}, molarMass: mix.Species[mix.Carrier].MolarMass}, nil
	}
	return nil, fmt.Errorf("drift: invalid model %q; valid options are none and stokes", name)
}

// None is a model where droplets move with the gas.
type None struct{}

// Velocity implements aerosol.Drift.
func (None) Velocity(_ *aerosol.Cell, _, _ float64) [3]float64 { return [3]float64{} }

// Stokes is gravitational settling in the Stokes regime with slip
// correction.
type Stokes struct {
	G [3]float64 // gravitational acceleration [m/s²]

	molarMass float64 // carrier gas [kg/mol]
}

// Velocity implements aerosol.Drift.
func (s *Stokes) Velocity(c *aerosol.Cell, d, rho float64) [3]float64 {
	var v [3]float64
	if c.Mu <= 0 || d <= 0 {
		return v
	}
	cc := aerosol.Cunningham(d, aerosol.MeanFreePath(c, s.molarMass))
	tau := (rho - c.Rho) * d * d * cc / (18 * c.Mu) // relaxation time × buoyancy [s]
	for k := range v {
		v[k] = tau * s.G[k]
	}
	return v
}
