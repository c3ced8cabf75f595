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

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// extend returns a copy of g with one more section above the largest one.
// Linear grids add a section of the same width; other grids add a section
// with the same size ratio as the last two.
func (g *SizeGrid) extend() (*SizeGrid, error) {
	cfg := g.cfg
	nodes := g.y
	if cfg.Position == Interface {
		nodes = g.x
	}
	n := len(nodes)
	if n < 2 {
		return nil, configErr("P", cfg.P, "a grid with a single node cannot be extended")
	}
	ext := append(append([]float64(nil), nodes...), 0)
	a, b := nodes[n-2], nodes[n-1]
	switch cfg.Distribution {
	case Linear:
		ext[n] = 2*b - a
	default:
		ext[n] = b * b / a
	}
	cfg.P++
	cfg.YMax = ext[n]
	switch cfg.Distribution {
	case Logarithmic, List:
		cfg.Distribution = List
		cfg.List = ext
	}
	return NewSizeGrid(cfg)
}

// remap returns the droplet numbers M, defined on grid from, redistributed
// onto grid to with two-moment redistribution. Droplets outside of the new
// grid are placed in the nearest section, preserving mass.
func remap(from, to *SizeGrid, M []float64) []float64 {
	o := make([]float64, to.P())
	r := Redistributor{Grid: to, Method: TwoMoment}
	for i, v := range M {
		if v == 0 {
			continue
		}
		d := from.xi[i]
		if sp, ok := r.Split(d, v, nil); ok {
			sp.AddTo(o)
			continue
		}
		k := 0
		if d > to.xi[0] {
			k = to.P() - 1
		}
		o[k] += v * d / to.xi[k]
	}
	return o
}

// lastSectionFraction returns the largest share of droplet mass held in the
// largest section of any cell.
func (s *Sectional) lastSectionFraction(cells []*Cell) float64 {
	last := s.Grid.P() - 1
	var f float64
	for _, c := range cells {
		var tot float64
		for i, v := range c.M {
			tot += v * s.Grid.xi[i]
		}
		if tot <= 0 {
			continue
		}
		if v := c.M[last] * s.Grid.xi[last] / tot; v > f {
			f = v
		}
	}
	return f
}

// CorrectSizeDistribution returns a function that extends the size grid by
// one section when the share of droplet mass in the largest section of any
// cell exceeds CorrectThreshold. The droplets in every cell are remapped
// onto the new grid and the coalescence connectivity is rebuilt.
func (s *Sectional) CorrectSizeDistribution() DomainManipulator {
	return func(m *Model) error {
		f := s.lastSectionFraction(m.cells)
		if f <= s.Config.CorrectThreshold {
			return nil
		}
		g, err := s.Grid.extend()
		if err != nil {
			return err
		}
		for _, c := range m.cells {
			c.M = remap(s.Grid, g, c.M)
			V := make([][3]float64, g.P())
			copy(V, c.V)
			for i := len(c.V); i < len(V); i++ {
				V[i] = c.U
			}
			c.V = V
			c.J = make([]float64, g.P())
		}
		for _, face := range m.Faces {
			face.Phid = nil
		}
		s.Log.WithFields(logrus.Fields{
			"sections":     g.P(),
			"largest":      g.X(g.P() - 1),
			"massFraction": f,
		}).Info("aerosol: extended the size grid")
		s.setGrid(g)
		if s.Metrics != nil {
			s.Metrics.GridCorrections.Inc()
		}
		return nil
	}
}

// setGrid replaces the size grid of s and rebuilds the coalescence
// connectivity. It must not run concurrently with the cell loop.
func (s *Sectional) setGrid(g *SizeGrid) {
	s.Grid = g
	s.Config.Grid = g.Config()
	if s.Coa != nil {
		s.Coa.Invalidate()
	}
	s.Coa = PrepareCoa(g)
}

// restoreGrid makes the size grid of s match the representative sizes xs
// of a grid that CorrectSizeDistribution may have extended. If the grid
// changes, the cells of m are resized and their section data discarded.
func (s *Sectional) restoreGrid(m *Model, xs []float64) error {
	if sameSizes(s.Grid.x, xs) {
		return nil
	}
	g := s.Grid
	for g.P() < len(xs) {
		var err error
		if g, err = g.extend(); err != nil {
			return err
		}
	}
	if !sameSizes(g.x, xs) {
		return fmt.Errorf("aerosol: the checkpoint was written with a different size grid "+
			"(%d sections from %g to %g; configured %d sections from %g to %g)",
			len(xs), xs[0], xs[len(xs)-1], s.Grid.P(), s.Grid.x[0], s.Grid.x[s.Grid.P()-1])
	}
	for _, c := range m.cells {
		c.resize(g.P())
		for i := range c.V {
			c.V[i] = c.U
		}
	}
	for _, face := range m.Faces {
		face.Phid = nil
	}
	s.Log.WithFields(logrus.Fields{
		"sections": g.P(),
		"largest":  g.X(g.P() - 1),
	}).Info("aerosol: restored the extended size grid of the checkpoint")
	s.setGrid(g)
	return nil
}

func sameSizes(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !floats.EqualWithinAbsOrRel(a[i], b[i], 0, 1e-10) {
			return false
		}
	}
	return true
}
