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

package nucleation

import (
	"math"

	"github.com/spatialmodel/aerosol"
)

func init() {
	allocators["classical"] = newClassical
}

// Classical is homogeneous nucleation of a single species according to
// classical nucleation theory.
type Classical struct {
	mix         aerosol.Mixture
	j           int
	composition []float64
}

func newClassical(p aerosol.Params, mix aerosol.Mixture) (aerosol.Nucleation, error) {
	j, w, err := composition(p, mix)
	if err != nil {
		return nil, err
	}
	sp := mix.Species[j]
	if sp.SurfaceTension <= 0 {
		return nil, &aerosol.ConfigurationError{Parameter: "SurfaceTension", Value: sp.SurfaceTension,
			Reason: "classical nucleation requires the surface tension of " + sp.Name}
	}
	return &Classical{mix: mix, j: j, composition: w}, nil
}

// Saturation returns the saturation ratio of the nucleating species in c.
func (n *Classical) Saturation(c *aerosol.Cell) float64 {
	x := n.mix.VaporMoleFractions(c, nil)
	return x[n.j] * c.P / n.mix.Species[n.j].Psat(c.T)
}

// Rate implements aerosol.Nucleation.
func (n *Classical) Rate(c *aerosol.Cell) (aerosol.NucleationRate, error) {
	r := aerosol.NucleationRate{Composition: n.composition}
	S := n.Saturation(c)
	if !(S > 1) || c.T <= 0 {
		return r, nil
	}
	sp := n.mix.Species[n.j]
	kT := aerosol.KBoltzmann * c.T
	m1 := sp.MolarMass / aerosol.NAvogadro // molecular mass [kg]
	v1 := m1 / sp.LiquidDensity           // molecular volume [m³]
	sigma := sp.SurfaceTension
	lnS := math.Log(S)

	n1 := S * sp.Psat(c.T) / kT // monomer concentration [1/m³]
	dG := 16 * math.Pi * sigma * sigma * sigma * v1 * v1 / (3 * kT * kT * lnS * lnS)
	r.DStar = 4 * sigma * v1 / (kT * lnS)
	r.J = math.Sqrt(2*sigma/(math.Pi*m1)) * v1 * n1 * n1 / S * math.Exp(-dG/kT)
	return r, nil
}
