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
	"math"

	"github.com/spf13/cast"
)

// Params holds the parameters of a closure model, as read from a case file.
type Params map[string]interface{}

// Float returns parameter name as a float, or def if it is not set.
func (p Params) Float(name string, def float64) (float64, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, configErr(name, v, "must be a number")
	}
	return f, nil
}

// Positive is Float for parameters that must be larger than zero.
func (p Params) Positive(name string, def float64) (float64, error) {
	f, err := p.Float(name, def)
	if err != nil {
		return 0, err
	}
	if !(f > 0) {
		return 0, configErr(name, f, "must be positive")
	}
	return f, nil
}

// String returns parameter name as a string, or def if it is not set.
func (p Params) String(name, def string) (string, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", configErr(name, v, "must be a string")
	}
	return s, nil
}

// Floats returns parameter name as a list of floats, or def if it is not set.
func (p Params) Floats(name string, def []float64) ([]float64, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	l, err := cast.ToSliceE(v)
	if err != nil {
		return nil, configErr(name, v, "must be a list of numbers")
	}
	o := make([]float64, len(l))
	for i, e := range l {
		if o[i], err = cast.ToFloat64E(e); err != nil {
			return nil, configErr(name, v, "must be a list of numbers")
		}
	}
	return o, nil
}

// VaporMoleFractions sets x[j] to the mole fraction of species j in the gas
// phase of c and returns x.
func (m Mixture) VaporMoleFractions(c *Cell, x []float64) []float64 {
	if len(x) != len(m.Species) {
		x = make([]float64, len(m.Species))
	}
	var tot float64
	for j, sp := range m.Species {
		x[j] = math.Max(c.Y[j], 0) / sp.MolarMass
		tot += x[j]
	}
	if tot > 0 {
		for j := range x {
			x[j] /= tot
		}
	}
	return x
}

// LiquidMoleFractions sets x[j] to the mole fraction of species j in the
// liquid phase of c and returns x. All fractions are zero if there is no
// liquid.
func (m Mixture) LiquidMoleFractions(c *Cell, x []float64) []float64 {
	if len(x) != len(m.Species) {
		x = make([]float64, len(m.Species))
	}
	var tot float64
	for j, sp := range m.Species {
		x[j] = 0
		if sp.Condensable {
			x[j] = math.Max(c.Z[j], 0) / sp.MolarMass
			tot += x[j]
		}
	}
	if tot > 0 {
		for j := range x {
			x[j] /= tot
		}
	}
	return x
}

// MeanFreePath returns the mean free path [m] of gas molecules of molar mass
// M [kg/mol] in cell c.
func MeanFreePath(c *Cell, M float64) float64 {
	if c.P <= 0 || c.T <= 0 {
		return 0
	}
	return c.Mu / c.P * math.Sqrt(math.Pi*RGas*c.T/(2*M))
}

// Cunningham returns the slip correction factor for a particle of
// diameter d [m] in a gas with mean free path lambda [m].
func Cunningham(d, lambda float64) float64 {
	if d <= 0 || lambda <= 0 {
		return 1
	}
	kn := 2 * lambda / d
	return 1 + kn*(1.257+0.4*math.Exp(-1.1/kn))
}
