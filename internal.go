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
	"fmt"
	"math"
)

// FractionalStepInternal advances the droplets in c by nucleation and
// condensation/evaporation over Δt. The vapor consumed or released is
// stored in c.S; the species mass fractions themselves are updated by the
// SpeciesSolver.
func (s *Sectional) FractionalStepInternal(c *Cell, Δt float64) error {
	c.storeM0()
	for j := range c.S {
		c.S[j] = 0
	}
	c.Diag[Jnuc], c.Diag[Dnuc], c.Diag[CoCond] = 0, 0, 0
	if Δt <= 0 || c.Rho <= 0 {
		return nil
	}

	// Vapor and liquid available during this step [kg/kg].
	y := append([]float64(nil), c.Y...)
	z := append([]float64(nil), c.Z...)

	if s.Config.DoNuc {
		if s.Nucleation == nil {
			return notConfigured("nucleation")
		}
		if err := s.nucleate(c, Δt, y, z); err != nil {
			return err
		}
	}
	if s.Config.DoCond {
		if s.Growth == nil {
			return notConfigured("condensation")
		}
		if err := s.condense(c, Δt, y, z); err != nil {
			return err
		}
	}

	c.HvapS = 0
	for j, sp := range s.Mixture.Species {
		c.S[j] = (c.Y[j] - y[j]) * c.Rho / Δt
		c.HvapS += c.S[j] * sp.Hvap
	}
	for i := range c.J {
		c.J[i] = (c.M[i] - c.m0[i]) / Δt
	}
	return nil
}

// nucleate adds new droplets to c. y and z are the vapor and liquid mass
// fractions, which are updated.
func (s *Sectional) nucleate(c *Cell, Δt float64, y, z []float64) error {
	nr, err := s.Nucleation.Rate(c)
	if err != nil {
		return fmt.Errorf("aerosol: nucleation in cell %d: %w", c.Index, err)
	}
	if nr.J <= 0 || nr.DStar <= 0 {
		return nil
	}
	if len(nr.Composition) != len(y) {
		return fmt.Errorf("aerosol: nucleation in cell %d: composition has %d species but the mixture has %d",
			c.Index, len(nr.Composition), len(y))
	}
	mStar := math.Pi / 6 * math.Pow(nr.DStar, 3) * s.mixtureDensity(nr.Composition)

	// Nuclei per unit mixture mass, limited by the available vapor.
	n := nr.J * Δt / c.Rho
	for j, w := range nr.Composition {
		if w > 0 && n*mStar*w > y[j] {
			n = y[j] / (mStar * w)
		}
	}
	if n <= 0 {
		return nil
	}
	s.place(c, s.Redistributor(), c.M, mStar, n)
	for j, w := range nr.Composition {
		dm := n * mStar * w
		y[j] -= dm
		z[j] += dm
	}
	c.Diag[Jnuc] = n * c.Rho / Δt
	c.Diag[Dnuc] = nr.DStar
	return nil
}

// condense grows or shrinks the droplets in c. The time step is divided into
// substeps so that droplets move at most MaxCFL section widths per substep.
func (s *Sectional) condense(c *Cell, Δt float64, y, z []float64) error {
	P, nS := s.Grid.P(), len(y)
	rates := make([]float64, P*nS) // dm/dt of each section and species [kg/s]
	dm := make([]float64, nS)
	d := make([]float64, P)

	// rate fills in rates and returns the largest Courant number over Δt.
	rate := func() (float64, error) {
		d = s.sectionDiameters(c, d)
		var co float64
		for i := 0; i < P; i++ {
			r := rates[i*nS : (i+1)*nS]
			for j := range r {
				r[j] = 0
			}
			if c.M[i] <= 0 {
				continue
			}
			if err := s.Growth.Rate(c, d[i], r); err != nil {
				return 0, fmt.Errorf("aerosol: condensation in cell %d: %w", c.Index, err)
			}
			var tot float64
			for _, v := range r {
				tot += v
			}
			co = math.Max(co, math.Abs(tot)*Δt/s.Grid.width(i))
		}
		return co, nil
	}

	co, err := rate()
	if err != nil {
		return err
	}
	c.Diag[CoCond] = co
	n := substeps(co, s.Config.MaxCFL, s.Config.MaxSubsteps)
	h := Δt / float64(n)
	r := s.Redistributor()
	Mn := make([]float64, P)
	delta := make([]float64, P*nS)

	for step := 0; step < n; step++ {
		if step > 0 {
			if _, err := rate(); err != nil {
				return err
			}
		}
		// Limit the transfer of each species to what is available.
		f := make([]float64, nS)
		for j := range f {
			var demand float64
			for i := 0; i < P; i++ {
				demand += c.M[i] * rates[i*nS+j] * h
			}
			f[j] = 1
			if demand > y[j] && demand > 0 {
				f[j] = math.Max(y[j], 0) / demand
			} else if demand < -z[j] && demand < 0 {
				f[j] = math.Max(z[j], 0) / -demand
			}
		}

		for j := range dm {
			dm[j] = 0
		}
		for i := range Mn {
			Mn[i] = 0
		}
		for i := 0; i < P; i++ {
			if c.M[i] <= 0 {
				continue
			}
			dl := delta[i*nS : (i+1)*nS]
			var tot float64
			for j := range dl {
				dl[j] = f[j] * rates[i*nS+j] * h
				tot += dl[j]
			}
			m := s.Grid.Mass(i)
			if m+tot < 0 { // complete evaporation
				g := m / -tot
				for j := range dl {
					dl[j] *= g
				}
				tot = -m
			}
			for j := range dl {
				dm[j] += c.M[i] * dl[j]
			}
			if tot == 0 {
				Mn[i] += c.M[i]
				continue
			}
			s.place(c, r, Mn, m+tot, c.M[i])
		}
		copy(c.M, Mn)
		for j := range dm {
			y[j] -= dm[j]
			z[j] += dm[j]
		}
	}
	return nil
}
