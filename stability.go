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

import "math"

const small = 1.e-15

// Courant returns the largest condensation, coalescence or drift Courant
// number of any cell.
func Courant(cells []*Cell) float64 {
	var co float64
	for _, c := range cells {
		co = math.Max(co, math.Max(c.Diag[CoCond], math.Max(c.Diag[CoCoa], c.Diag[CoDrift])))
	}
	return co
}

// SetDeltaT returns a function that adjusts the time step so that the
// largest Courant number approaches maxCo. The time step grows by at most
// 20% per iteration and never exceeds maxDeltaT [s].
func SetDeltaT(maxCo, maxDeltaT float64) DomainManipulator {
	return func(m *Model) error {
		co := Courant(m.cells)
		maxDeltaTFact := maxCo / (co + small)
		deltaTFact := math.Min(math.Min(maxDeltaTFact, 1+0.1*maxDeltaTFact), 1.2)
		m.Dt = math.Min(deltaTFact*m.Dt, maxDeltaT)
		return nil
	}
}
