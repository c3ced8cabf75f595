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

import "github.com/spatialmodel/aerosol"

func init() {
	allocators["constant"] = newConstant
}

// Constant forms nuclei of a fixed size at a fixed rate.
type Constant struct {
	J, DStar    float64
	Composition []float64
}

// newConstant reads parameters "J" [1/m³/s], "dStar" [m] and "species".
func newConstant(p aerosol.Params, mix aerosol.Mixture) (aerosol.Nucleation, error) {
	J, err := p.Float("J", 0)
	if err != nil {
		return nil, err
	}
	dStar, err := p.Positive("dStar", 1e-9)
	if err != nil {
		return nil, err
	}
	_, w, err := composition(p, mix)
	if err != nil {
		return nil, err
	}
	return &Constant{J: J, DStar: dStar, Composition: w}, nil
}

// Rate implements aerosol.Nucleation.
func (n *Constant) Rate(_ *aerosol.Cell) (aerosol.NucleationRate, error) {
	return aerosol.NucleationRate{J: n.J, DStar: n.DStar, Composition: n.Composition}, nil
}
