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

// InitialDistribution describes how a total droplet number is spread over
// the sections when a simulation starts without sectional data.
// If CMD is zero, all droplets are placed in the smallest section.
type InitialDistribution struct {
	CMD   float64 `desc:"Count median diameter" units:"m"`
	Sigma float64 `desc:"Geometric standard deviation"`
}

// Fractions returns the share of droplets in each section of g. The tails
// of the distribution are added to the first and last sections.
func (d InitialDistribution) Fractions(g *SizeGrid) ([]float64, error) {
	f := make([]float64, g.P())
	if d.CMD <= 0 {
		f[0] = 1
		return f, nil
	}
	if d.Sigma <= 1 {
		return nil, configErr("sigma", d.Sigma, "the geometric standard deviation must be larger than 1")
	}
	rho := g.cfg.DropletDensity
	if rho <= 0 {
		rho = 1000
	}
	lnSigma := math.Log(d.Sigma)
	cdf := func(y float64) float64 {
		dia := Diameter(g.MassOf(y), rho)
		if dia <= 0 {
			return 0
		}
		return 0.5 * (1 + math.Erf(math.Log(dia/d.CMD)/(math.Sqrt2*lnSigma)))
	}
	prev := 0.
	for i := range f {
		next := cdf(g.y[i+1])
		if i == len(f)-1 {
			next = 1
		}
		f[i] = next - prev
		prev = next
	}
	return f, nil
}

// Initialize sets the droplet numbers in c from a total droplet number
// [1/kg] distributed according to d.
func (s *Sectional) Initialize(c *Cell, total float64, d InitialDistribution) error {
	f, err := d.Fractions(s.Grid)
	if err != nil {
		return err
	}
	if len(c.M) != len(f) {
		c.resize(len(f))
	}
	for i, v := range f {
		c.M[i] = total * v
		c.V[i] = c.U
	}
	return nil
}
