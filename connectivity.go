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

// Connection holds the precomputed result of a coalescence between
// sections I and J.
type Connection struct {
	I, J int
	D    float64 // droplet mass of the product [kg]
	K    int     // lower target section, or P if the product is off the grid

	// Two and Four are the redistribution splits of a single product
	// droplet. Four.N is zero when no four-section window is available.
	Two, Four Split

	// Outside is true if the product is larger than the largest section.
	Outside bool
}

// Connectivity is the table of coalescence connections between all pairs
// of sections. It must be rebuilt whenever the grid changes.
type Connectivity struct {
	grid     *SizeGrid
	pairs    []Connection
	prepared bool
}

// PrepareCoa computes the connectivity table for all pairs i ≤ j of the
// sections in g, in ascending order.
func PrepareCoa(g *SizeGrid) *Connectivity {
	c := new(Connectivity)
	c.prepare(g)
	return c
}

func (c *Connectivity) prepare(g *SizeGrid) {
	P := g.P()
	c.grid = g
	c.pairs = make([]Connection, 0, P*(P+1)/2)
	for i := 0; i < P; i++ {
		for j := i; j < P; j++ {
			d := g.xi[i] + g.xi[j]
			k := g.massLowerIndex(d)
			cn := Connection{I: i, J: j, D: d, K: k}
			switch {
			case k >= P:
				cn.Outside = true
			case k == P-1 || d == g.xi[k]:
				cn.Two = single(k, 1)
			default:
				cn.Two = g.TwoMoment(k, k+1, d, 1, 1)
				if k-1 >= 0 && k+2 < P {
					cn.Four = g.FourMoment(k, k+1, d, 1, 1)
				}
			}
			c.pairs = append(c.pairs, cn)
		}
	}
	c.prepared = true
}

// Prepared reports whether the table matches the current grid.
func (c *Connectivity) Prepared() bool { return c != nil && c.prepared }

// Invalidate marks the table as out of date.
func (c *Connectivity) Invalidate() { c.prepared = false }

// Pairs returns the connections in ascending (i, j) order. The returned
// slice must not be modified.
func (c *Connectivity) Pairs() []Connection { return c.pairs }

// Pair returns the connection between sections i and j.
func (c *Connectivity) Pair(i, j int) Connection {
	if i > j {
		i, j = j, i
	}
	P := c.grid.P()
	// Offset of row i in the packed upper triangle.
	return c.pairs[i*P-i*(i-1)/2+(j-i)]
}

// Split returns the redistribution of G product droplets of the pair cn
// according to method, keeping M non-negative for the hybrid method.
func (c *Connectivity) Split(cn *Connection, method DistMethod, phi, G float64, M []float64) Split {
	switch {
	case cn.Four.N == 0 || method == TwoMoment:
		return cn.Two.Scale(G)
	case method == FourMoment:
		return cn.Four.Scale(G)
	}
	two, four := cn.Two.Scale(G), cn.Four.Scale(G)
	p := hybridPhi(two, four, M, phi)
	if p <= 0 {
		return two
	}
	return merge(two.Scale(1-p), four.Scale(p))
}
