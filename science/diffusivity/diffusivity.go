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

// Package diffusivity provides models for the binary diffusion coefficient
// of vapor species in the carrier gas.
package diffusivity

import (
	"fmt"
	"math"

	"github.com/spatialmodel/aerosol"
)

// New returns the diffusivity model with the given name. Valid names are
// "constant" and "fullerSchettlerGiddings".
func New(name string, p aerosol.Params, mix aerosol.Mixture) (aerosol.Diffusivity, error) {
	switch name {
	case "constant":
		d, err := p.Positive("D", 2e-5)
		if err != nil {
			return nil, err
		}
		return Constant(d), nil
	case "fullerSchettlerGiddings":
		return NewFullerSchettlerGiddings(mix)
	}
	return nil, fmt.Errorf("diffusivity: invalid model %q; valid options are constant and fullerSchettlerGiddings", name)
}

// Constant is a diffusion coefficient [m²/s] that is the same for all
// species.
type Constant float64

// D implements aerosol.Diffusivity.
func (d Constant) D(_ int, _, _ float64) float64 { return float64(d) }

// FullerSchettlerGiddings estimates binary diffusion coefficients from the
// molar masses and diffusion volumes of each species and the carrier gas.
type FullerSchettlerGiddings struct {
	factor []float64 // sqrt(1/Ma+1/Mb)/(Va^⅓+Vb^⅓)² of each species
}

// patm is one standard atmosphere [Pa].
const patm = 101325.

// NewFullerSchettlerGiddings initializes the model for mix. Every species
// must have a diffusion volume.
func NewFullerSchettlerGiddings(mix aerosol.Mixture) (*FullerSchettlerGiddings, error) {
	b := mix.Species[mix.Carrier]
	if b.DiffusionVolume <= 0 {
		return nil, &aerosol.ConfigurationError{Parameter: "DiffusionVolume", Value: b.DiffusionVolume,
			Reason: "the carrier gas " + b.Name + " needs a diffusion volume"}
	}
	f := make([]float64, mix.Len())
	for j, a := range mix.Species {
		if a.DiffusionVolume <= 0 {
			return nil, &aerosol.ConfigurationError{Parameter: "DiffusionVolume", Value: a.DiffusionVolume,
				Reason: "species " + a.Name + " needs a diffusion volume"}
		}
		// Molar masses in g/mol.
		ma, mb := a.MolarMass*1000, b.MolarMass*1000
		v := math.Cbrt(a.DiffusionVolume) + math.Cbrt(b.DiffusionVolume)
		f[j] = math.Sqrt(1/ma+1/mb) / (v * v)
	}
	return &FullerSchettlerGiddings{factor: f}, nil
}

// D implements aerosol.Diffusivity.
func (d *FullerSchettlerGiddings) D(j int, T, p float64) float64 {
	if p <= 0 {
		return 0
	}
	return 1e-7 * math.Pow(T, 1.75) * d.factor[j] / (p / patm)
}
