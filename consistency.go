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

// CheckConsistency clips negative droplet numbers and mass fractions to
// zero and mass fractions larger than one to one. It returns the number of
// values that were changed.
func CheckConsistency(c *Cell) int {
	var n int
	for i, v := range c.M {
		if v < 0 || math.IsNaN(v) {
			c.M[i] = 0
			n++
		}
	}
	for _, f := range [][]float64{c.Y, c.Z} {
		for j, v := range f {
			switch {
			case v < 0 || math.IsNaN(v):
				f[j] = 0
				n++
			case v > 1:
				f[j] = 1
				n++
			}
		}
	}
	return n
}

// Rescale scales the mass fractions in c so that they add up to one if the
// sum differs from one by more than tol. relax is the share of the
// correction that is applied. If the sum is zero, the carrier gas fills
// the cell. Rescale reports whether the fractions were changed.
func Rescale(c *Cell, carrier int, tol, relax float64) bool {
	var sum float64
	for j := range c.Y {
		sum += c.Y[j] + c.Z[j]
	}
	if math.Abs(sum-1) <= tol {
		return false
	}
	if sum <= 0 {
		if carrier >= 0 && carrier < len(c.Y) {
			c.Y[carrier] = 1
			return true
		}
		return false
	}
	f := 1 + relax*(1/sum-1)
	for j := range c.Y {
		c.Y[j] *= f
		c.Z[j] *= f
	}
	return true
}

// LimitWallFlux prevents droplets from leaving through walls: outward
// droplet fluxes at wall faces are set to zero for sections that are empty
// in the owner cell.
func LimitWallFlux(faces []*Face) {
	for _, f := range faces {
		if !f.Wall || f.Owner == nil {
			continue
		}
		for i, phid := range f.Phid {
			if phid > 0 && i < len(f.Owner.M) && f.Owner.M[i] <= 0 {
				f.Phid[i] = 0
			}
		}
	}
}

// UpdateDropletFluxes returns a function that calculates the droplet mass
// flux of each section through every face from the mixture flux and the
// droplet slip velocity in the owner cell, then limits the fluxes at walls.
func (s *Sectional) UpdateDropletFluxes() DomainManipulator {
	return func(m *Model) error {
		P := s.Grid.P()
		for _, f := range m.Faces {
			if f.Owner == nil {
				continue
			}
			if len(f.Phid) != P {
				f.Phid = make([]float64, P)
			}
			o := f.Owner
			rho := o.Rho
			if f.Neighbor != nil {
				rho = (o.Rho + f.Neighbor.Rho) / 2
			}
			for i := 0; i < P; i++ {
				var slip float64
				if i < len(o.V) {
					for k := 0; k < 3; k++ {
						slip += (o.V[i][k] - o.U[k]) * f.Sf[k]
					}
				}
				f.Phid[i] = f.Phi + rho*slip
			}
		}
		LimitWallFlux(m.Faces)
		return nil
	}
}

// UpdateDropletVelocities sets the velocity of each section in c to the
// mixture velocity plus the drift velocity, and records the drift Courant
// number.
func (s *Sectional) UpdateDropletVelocities(c *Cell, Δt float64) error {
	c.Diag[CoDrift] = 0
	if !s.Config.DoDrift {
		for i := range c.V {
			c.V[i] = c.U
		}
		return nil
	}
	if s.Drift == nil {
		return notConfigured("drift")
	}
	rho := s.dropletDensity(c)
	d := s.sectionDiameters(c, nil)
	var vmax float64
	for i := range c.V {
		v := s.Drift.Velocity(c, d[i], rho)
		var mag float64
		for k := 0; k < 3; k++ {
			c.V[i][k] = c.U[k] + v[k]
			mag += v[k] * v[k]
		}
		vmax = math.Max(vmax, math.Sqrt(mag))
	}
	if c.Volume > 0 {
		c.Diag[CoDrift] = vmax * Δt / math.Cbrt(c.Volume)
	}
	return nil
}
