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

// Package growth provides models for the condensational growth and
// evaporation of droplets.
package growth

import (
	"fmt"
	"math"

	"github.com/spatialmodel/aerosol"
)

// New returns the growth model with the given name. The only valid name is
// "maxwell". Conductivity may be nil, in which case latent heating of the
// droplets is neglected.
func New(name string, p aerosol.Params, mix aerosol.Mixture, d aerosol.Diffusivity, k aerosol.Conductivity) (aerosol.Growth, error) {
	if name != "maxwell" {
		return nil, fmt.Errorf("growth: invalid model %q; the only valid option is maxwell", name)
	}
	if d == nil {
		return nil, fmt.Errorf("growth: the maxwell model needs a diffusivity model")
	}
	alpha, err := p.Positive("alpha", 1)
	if err != nil {
		return nil, err
	}
	if alpha > 1 {
		return nil, &aerosol.ConfigurationError{Parameter: "alpha", Value: alpha, Reason: "the accommodation coefficient must not exceed 1"}
	}
	return &Maxwell{Alpha: alpha, mix: mix, diffusivity: d, conductivity: k}, nil
}

// Maxwell is diffusion-limited growth with the Fuchs–Sutugin transition
// regime correction, the Kelvin effect and Raoult's law, and optionally
// the Mason correction for latent heat release.
type Maxwell struct {
	Alpha float64 // mass accommodation coefficient

	mix          aerosol.Mixture
	diffusivity  aerosol.Diffusivity
	conductivity aerosol.Conductivity
}

// FuchsSutugin returns the transition regime correction factor for Knudsen
// number kn and accommodation coefficient alpha.
func FuchsSutugin(kn, alpha float64) float64 {
	a := 4 / (3 * alpha)
	return (1 + kn) / (1 + (a+0.377)*kn + a*kn*kn)
}

// Rate implements aerosol.Growth.
func (g *Maxwell) Rate(c *aerosol.Cell, d float64, dmdt []float64) error {
	for j := range dmdt {
		dmdt[j] = 0
	}
	if d <= 0 || c.T <= 0 || c.P <= 0 {
		return nil
	}
	if len(dmdt) != g.mix.Len() {
		return fmt.Errorf("growth: got %d rates for %d species", len(dmdt), g.mix.Len())
	}
	xv := g.mix.VaporMoleFractions(c, nil)
	xl := g.mix.LiquidMoleFractions(c, nil)
	RT := aerosol.RGas * c.T
	var K float64
	if g.conductivity != nil {
		K = g.conductivity.K(c.T, c.P)
	}
	for j, sp := range g.mix.Species {
		if !sp.Condensable {
			continue
		}
		D := g.diffusivity.D(j, c.T, c.P)
		if D <= 0 {
			continue
		}
		psat := sp.Psat(c.T)
		kelvin := 1.
		if sp.SurfaceTension > 0 {
			kelvin = math.Exp(4 * sp.SurfaceTension * sp.MolarMass / (sp.LiquidDensity * RT * d))
		}
		pInf := xv[j] * c.P
		pSurf := xl[j] * psat * kelvin
		if pInf == pSurf {
			continue
		}
		// Knudsen number from the vapor mean free path 3D/c̄.
		cbar := math.Sqrt(8 * RT / (math.Pi * sp.MolarMass))
		kn := 6 * D / (cbar * d)
		rate := 2 * math.Pi * d * D * sp.MolarMass / RT * (pInf - pSurf) * FuchsSutugin(kn, g.Alpha)
		if K > 0 && sp.Hvap > 0 {
			L := sp.Hvap * sp.MolarMass / RT // dimensionless latent heat
			rate /= 1 + D*sp.MolarMass*psat*kelvin*sp.Hvap/(RT*K*c.T)*(L-1)
		}
		dmdt[j] = rate
	}
	return nil
}
