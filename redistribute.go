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

// DistMethod specifies how off-grid droplets are redistributed onto the
// section grid.
type DistMethod int

// Redistribution methods.
const (
	// TwoMoment preserves droplet number and mass.
	TwoMoment DistMethod = iota
	// FourMoment preserves the first four moments of the droplet mass.
	FourMoment
	// Hybrid blends the two methods, using as much of the four-moment
	// result as possible without creating negative section contents.
	Hybrid
)

// ParseDistMethod returns the redistribution method with the given name.
func ParseDistMethod(name string) (DistMethod, error) {
	switch name {
	case "twoMoment", "":
		return TwoMoment, nil
	case "fourMoment":
		return FourMoment, nil
	case "hybrid":
		return Hybrid, nil
	}
	return 0, configErr("distMethod", name, "valid options are twoMoment, fourMoment, and hybrid")
}

func (m DistMethod) String() string {
	switch m {
	case FourMoment:
		return "fourMoment"
	case Hybrid:
		return "hybrid"
	}
	return "twoMoment"
}

// TwoMomentWeights returns the weights that split a parcel at d between
// nodes xi and xj while preserving its 0th and 1st moments.
func TwoMomentWeights(xi, xj, d float64) (wi, wj float64) {
	wi = (xj - d) / (xj - xi)
	return wi, 1 - wi
}

// FourMomentWeights returns the weights that split a parcel at d between
// the four nodes x while preserving its 0th to 3rd moments. The weights
// are the Lagrange basis polynomials of x evaluated at d.
func FourMomentWeights(x [4]float64, d float64) [4]float64 {
	var w [4]float64
	for k := 0; k < 4; k++ {
		w[k] = 1
		for m := 0; m < 4; m++ {
			if m != k {
				w[k] *= (d - x[m]) / (x[k] - x[m])
			}
		}
	}
	return w
}

// Split holds the result of redistributing a parcel: N target sections and
// the amount added to each.
type Split struct {
	N      int
	Index  [4]int
	Amount [4]float64
}

// Total returns the sum of the amounts.
func (s Split) Total() float64 {
	var t float64
	for k := 0; k < s.N; k++ {
		t += s.Amount[k]
	}
	return t
}

// Scale returns s with all amounts multiplied by f.
func (s Split) Scale(f float64) Split {
	for k := 0; k < s.N; k++ {
		s.Amount[k] *= f
	}
	return s
}

// AddTo adds the amounts in s to M.
func (s Split) AddTo(M []float64) {
	for k := 0; k < s.N; k++ {
		M[s.Index[k]] += s.Amount[k]
	}
}

// merge returns the sum of a and b, which must target overlapping windows.
func merge(a, b Split) Split {
	o := a
	for k := 0; k < b.N; k++ {
		found := false
		for l := 0; l < o.N; l++ {
			if o.Index[l] == b.Index[k] {
				o.Amount[l] += b.Amount[k]
				found = true
				break
			}
		}
		if !found {
			o.Index[o.N] = b.Index[k]
			o.Amount[o.N] = b.Amount[k]
			o.N++
		}
	}
	return o
}

// single returns a Split putting G into section i.
func single(i int, G float64) Split {
	return Split{N: 1, Index: [4]int{i}, Amount: [4]float64{G}}
}

// TwoMoment redistributes a parcel of magnitude G·scale located at droplet
// mass d between sections i and j. Weights are extrapolated (and may be
// negative) when d lies outside [x_i, x_j].
func (g *SizeGrid) TwoMoment(i, j int, d, G, scale float64) Split {
	if i == j {
		return single(i, G*scale)
	}
	wi, wj := TwoMomentWeights(g.xi[i], g.xi[j], d)
	return Split{
		N:      2,
		Index:  [4]int{i, j},
		Amount: [4]float64{G * scale * wi, G * scale * wj},
	}
}

// FourMoment redistributes a parcel of magnitude G·scale located at droplet
// mass d, with x_i ≤ d ≤ x_j, over sections i-1, i, j, j+1. It falls back
// to TwoMoment when the four-section window leaves the grid.
func (g *SizeGrid) FourMoment(i, j int, d, G, scale float64) Split {
	if i-1 < 0 || j+1 >= len(g.xi) || j != i+1 {
		return g.TwoMoment(i, j, d, G, scale)
	}
	w := FourMomentWeights([4]float64{g.xi[i-1], g.xi[i], g.xi[j], g.xi[j+1]}, d)
	s := Split{N: 4, Index: [4]int{i - 1, i, j, j + 1}}
	for k := range w {
		s.Amount[k] = G * scale * w[k]
	}
	return s
}

// Redistributor splits off-grid parcels onto a SizeGrid.
type Redistributor struct {
	Grid   *SizeGrid
	Method DistMethod

	// Phi is the largest share of the four-moment result used by the
	// hybrid method.
	Phi float64
}

// Split redistributes a parcel of G droplets of mass d. M holds the current
// section contents, which the hybrid method keeps non-negative; it may be
// nil. ok is false if d is outside of the grid, in which case nothing
// is redistributed.
func (r Redistributor) Split(d, G float64, M []float64) (s Split, ok bool) {
	g := r.Grid
	i := g.massLowerIndex(d)
	switch {
	case i == BelowGrid || i >= g.P():
		return Split{}, false
	case i == g.P()-1 || d == g.xi[i]:
		return single(i, G), true
	}
	j := i + 1
	switch r.Method {
	case FourMoment:
		return g.FourMoment(i, j, d, G, 1), true
	case Hybrid:
		return r.hybrid(g.TwoMoment(i, j, d, G, 1), g.FourMoment(i, j, d, G, 1), M), true
	}
	return g.TwoMoment(i, j, d, G, 1), true
}

// hybrid blends two- and four-moment splits of the same parcel.
func (r Redistributor) hybrid(two, four Split, M []float64) Split {
	if four.N != 4 {
		return two
	}
	phi := hybridPhi(two, four, M, r.Phi)
	if phi <= 0 {
		return two
	}
	return merge(two.Scale(1-phi), four.Scale(phi))
}

// hybridPhi returns the largest φ ≤ phiMax for which
// M_k + (1-φ)·two_k + φ·four_k ≥ 0 in every target section.
func hybridPhi(two, four Split, M []float64, phiMax float64) float64 {
	phi := math.Max(0, math.Min(phiMax, 1))
	for k := 0; k < four.N; k++ {
		idx := four.Index[k]
		var base, a2 float64
		if M != nil {
			base = M[idx]
		}
		for l := 0; l < two.N; l++ {
			if two.Index[l] == idx {
				a2 = two.Amount[l]
			}
		}
		slope := four.Amount[k] - a2
		if slope >= 0 {
			continue
		}
		// base + a2 + φ·slope ≥ 0
		lim := (base + a2) / -slope
		if lim < phi {
			phi = math.Max(0, lim)
		}
	}
	return phi
}
