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
	"errors"
	"math"

	"github.com/sirupsen/logrus"
)

// errCoaNotPrepared is returned when coalescence is attempted before the
// connectivity table has been computed for the current grid.
var errCoaNotPrepared = errors.New("aerosol: coalescence connectivity has not been prepared")

// FractionalStepExternal advances the droplets in c by coalescence over Δt.
// Each pair of sections (i, j) loses droplets at the rate β·ρ·M_i·M_j and the
// products are redistributed onto the grid using the precomputed
// connectivity table.
func (s *Sectional) FractionalStepExternal(c *Cell, Δt float64) error {
	c.Diag[Jcoa], c.Diag[CoCoa] = 0, 0
	if !s.Config.DoCoa || Δt <= 0 || c.Rho <= 0 {
		return nil
	}
	if s.Kernel == nil {
		return notConfigured("coalescence")
	}
	if !s.Coa.Prepared() {
		return errCoaNotPrepared
	}
	P := s.Grid.P()
	d := s.sectionDiameters(c, nil)

	beta := make([]float64, P*P) // kernel of each pair [m³/s]
	for i := 0; i < P; i++ {
		for j := i; j < P; j++ {
			b := s.Kernel.Rate(d[i], d[j], c)
			beta[i*P+j], beta[j*P+i] = b, b
		}
	}

	// Fraction of each section lost over Δt.
	var co float64
	for i := 0; i < P; i++ {
		if c.M[i] <= 0 {
			continue
		}
		var l float64
		for j := 0; j < P; j++ {
			l += beta[i*P+j] * c.Rho * math.Max(c.M[j], 0) * Δt
		}
		co = math.Max(co, l)
	}
	c.Diag[CoCoa] = co
	if co == 0 {
		return nil
	}

	n := substeps(co, s.Config.MaxCoaFraction, s.Config.MaxSubsteps)
	if co/float64(n) > s.Config.MaxCoaFraction {
		s.Log.WithFields(logrus.Fields{
			"cell":           c.Index,
			"courant":        co,
			"substeps":       n,
			"maxCoaFraction": s.Config.MaxCoaFraction,
		}).Warn("aerosol: coalescence substep limit reached; collisions are limited to the available droplets")
	}
	h := Δt / float64(n)
	Mn := make([]float64, P)
	pairs := s.Coa.Pairs()
	for step := 0; step < n; step++ {
		copy(Mn, c.M)
		for k := range pairs {
			cn := &pairs[k]
			mi, mj := c.M[cn.I], c.M[cn.J]
			if mi <= 0 || mj <= 0 {
				continue
			}
			// A section cannot lose more droplets than it holds.
			e := beta[cn.I*P+cn.J] * c.Rho * mi * mj * h
			if cn.I == cn.J {
				e = math.Min(0.5*e, 0.5*Mn[cn.I])
			} else {
				e = math.Min(e, math.Min(Mn[cn.I], Mn[cn.J]))
			}
			if !(e > 0) {
				continue
			}
			if cn.I == cn.J {
				Mn[cn.I] -= 2 * e
			} else {
				Mn[cn.I] -= e
				Mn[cn.J] -= e
			}
			if cn.Outside {
				s.overflow(c, Mn, cn.D, e)
			} else {
				s.Coa.Split(cn, s.Config.DistMethod, s.Config.Phi, e, Mn).AddTo(Mn)
			}
			c.Diag[Jcoa] += e * c.Rho / Δt
		}
		copy(c.M, Mn)
	}
	return nil
}
