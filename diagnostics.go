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
	"gonum.org/v1/gonum/floats"
)

// CountMeanDiameter returns the count mean diameter of a size distribution
// with droplet numbers M and section diameters d. It returns 0 for an empty
// distribution.
func CountMeanDiameter(M, d []float64) float64 {
	n := floats.Sum(M)
	if n <= 0 {
		return 0
	}
	return floats.Dot(M, d) / n
}

// MassMeanDiameter returns the mass mean diameter of a size distribution
// with droplet numbers M, section droplet masses xi and section diameters d.
func MassMeanDiameter(M, xi, d []float64) float64 {
	var mass, md float64
	for i, v := range M {
		mass += v * xi[i]
		md += v * xi[i] * d[i]
	}
	if mass <= 0 {
		return 0
	}
	return md / mass
}

// UpdateDiagnostics calculates the mean diameters of the droplets in c.
func (s *Sectional) UpdateDiagnostics(c *Cell, Δt float64) error {
	if !s.Config.DoMonitors {
		return nil
	}
	d := s.sectionDiameters(c, nil)
	c.Diag[Dcm] = CountMeanDiameter(c.M, d)
	c.Diag[Dmm] = MassMeanDiameter(c.M, s.Grid.xi, d)
	return nil
}

// TimeAverage returns a function that accumulates the time averages of the
// cell diagnostics once the simulated time reaches start [s]. It should
// run after the diagnostics are updated and before the time is advanced.
func TimeAverage(start float64) DomainManipulator {
	var elapsed float64
	return func(m *Model) error {
		if m.Time < start || m.Dt <= 0 {
			return nil
		}
		w := m.Dt / (elapsed + m.Dt)
		for _, c := range m.cells {
			for k := range c.Mean {
				c.Mean[k] += w * (c.Diag[k] - c.Mean[k])
			}
		}
		elapsed += m.Dt
		return nil
	}
}
