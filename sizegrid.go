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
	"sort"

	"github.com/ctessum/unit"
	"gonum.org/v1/gonum/floats"
)

// SizeDistribution specifies how section sizes are laid out.
type SizeDistribution int

// Size distribution policies.
const (
	NoSizeDistribution SizeDistribution = iota
	Linear
	Logarithmic
	Geometric
	List
)

var sizeDistributionNames = map[string]SizeDistribution{
	"none":        NoSizeDistribution,
	"linear":      Linear,
	"logarithmic": Logarithmic,
	"geometric":   Geometric,
	"list":        List,
}

func (s SizeDistribution) String() string {
	for k, v := range sizeDistributionNames {
		if v == s {
			return k
		}
	}
	return fmt.Sprintf("SizeDistribution(%d)", int(s))
}

// ParseSizeDistribution returns the size distribution policy with the given name.
func ParseSizeDistribution(name string) (SizeDistribution, error) {
	s, ok := sizeDistributionNames[name]
	if !ok {
		return 0, configErr("sizeDistribution", name,
			"valid options are none, linear, logarithmic, geometric, and list")
	}
	return s, nil
}

// SizePosition specifies where representative sizes are placed relative to
// the section boundaries.
type SizePosition int

// Size position policies.
const (
	// Center places each representative size between two boundaries.
	Center SizePosition = iota
	// Interface places the representative sizes at the grid nodes and
	// the boundaries halfway in between.
	Interface
)

// ParseSizePosition returns the size position policy with the given name.
func ParseSizePosition(name string) (SizePosition, error) {
	switch name {
	case "center", "":
		return Center, nil
	case "interface":
		return Interface, nil
	}
	return 0, configErr("sizePosition", name, "valid options are center and interface")
}

func (p SizePosition) String() string {
	if p == Interface {
		return "interface"
	}
	return "center"
}

// SizeDimension is the physical dimension used to measure droplet size.
type SizeDimension struct {
	unit.Dimensions
}

// Droplet size dimensions.
var (
	MassDimension     = SizeDimension{unit.Kilogram}
	VolumeDimension   = SizeDimension{unit.Meter3}
	DiameterDimension = SizeDimension{unit.Meter}
)

// ParseSizeDimension returns the droplet size dimension with the given name.
func ParseSizeDimension(name string) (SizeDimension, error) {
	switch name {
	case "mass", "":
		return MassDimension, nil
	case "volume":
		return VolumeDimension, nil
	case "diameter":
		return DiameterDimension, nil
	}
	return SizeDimension{}, configErr("sizeDimension", name, "valid options are mass, volume, and diameter")
}

// Name returns the configuration name of the dimension.
func (d SizeDimension) Name() string {
	switch {
	case d.Matches(unit.Meter3):
		return "volume"
	case d.Matches(unit.Meter):
		return "diameter"
	}
	return "mass"
}

// SizeGridConfig holds the parameters of a section grid.
type SizeGridConfig struct {
	P            int     // Number of sections.
	Distribution SizeDistribution
	Position     SizePosition
	Dimension    SizeDimension
	YMin, YMax   float64 // Smallest and largest size, in units of Dimension.
	Q            float64 // Distribution parameter; see SizeDistribution.
	List         []float64
	Nominal      float64 // Size of the single section when Distribution is none.

	// DropletDensity [kg/m³] relates droplet volume and diameter to mass.
	DropletDensity float64
}

// SizeGrid holds the section boundaries and representative sizes.
// Droplets are redistributed in the droplet-mass coordinate, which is
// conserved by coalescence regardless of the configured size dimension.
type SizeGrid struct {
	cfg SizeGridConfig
	x   []float64 // representative sizes
	y   []float64 // boundaries
	xi  []float64 // representative droplet masses [kg]
}

// Sentinels returned by XLowerIndex.
const (
	BelowGrid = -1
)

// NewSizeGrid creates a new section grid from cfg.
func NewSizeGrid(cfg SizeGridConfig) (*SizeGrid, error) {
	if cfg.Dimension.Dimensions == nil {
		cfg.Dimension = MassDimension
	}
	if !cfg.Dimension.Matches(unit.Kilogram) {
		if cfg.DropletDensity <= 0 {
			return nil, configErr("dropletDensity", cfg.DropletDensity,
				"a positive droplet density is required for %s sizes", cfg.Dimension.Name())
		}
	}
	g := &SizeGrid{cfg: cfg}
	var err error
	switch cfg.Distribution {
	case NoSizeDistribution:
		err = g.buildNone()
	case Linear, Logarithmic, Geometric:
		err = g.buildSpaced()
	case List:
		err = g.buildList()
	default:
		err = configErr("sizeDistribution", cfg.Distribution, "unknown size distribution")
	}
	if err != nil {
		return nil, err
	}
	g.cfg.P = len(g.x)
	for i := 1; i < len(g.x); i++ {
		if !(g.x[i] > g.x[i-1]) {
			return nil, configErr("sizes", g.x, "representative sizes must be strictly increasing")
		}
	}
	g.xi = make([]float64, len(g.x))
	for i, x := range g.x {
		g.xi[i] = g.MassOf(x)
	}
	return g, nil
}

func (g *SizeGrid) buildNone() error {
	x := g.cfg.Nominal
	if x == 0 {
		x = g.cfg.YMin
	}
	if x <= 0 {
		return configErr("nominal", x, "the nominal size must be positive")
	}
	g.x = []float64{x}
	g.y = []float64{x, x}
	return nil
}

func (g *SizeGrid) buildSpaced() error {
	c := g.cfg
	if c.P < 1 {
		return configErr("P", c.P, "at least one section is required")
	}
	if c.Position == Interface && c.P < 2 {
		return configErr("P", c.P, "interface placement requires at least two sections")
	}
	if !(c.YMin < c.YMax) {
		return configErr("yMin", c.YMin, "yMin must be smaller than yMax (%g)", c.YMax)
	}
	n := c.P + 1 // number of nodes
	if c.Position == Interface {
		n = c.P
	}
	nodes := make([]float64, n)
	switch c.Distribution {
	case Linear:
		floats.Span(nodes, c.YMin, c.YMax)
	case Logarithmic:
		if c.YMin <= 0 {
			return configErr("yMin", c.YMin, "logarithmic sizes must be positive")
		}
		q := c.Q
		if q == 0 {
			q = 1
		}
		if q < 0 {
			return configErr("q", c.Q, "q must be positive")
		}
		a := math.Pow(c.YMax/c.YMin, q/float64(n-1))
		for k := range nodes {
			nodes[k] = c.YMin * math.Pow(a, float64(k)/q)
		}
		nodes[n-1] = c.YMax
	case Geometric:
		if c.YMin <= 0 {
			return configErr("yMin", c.YMin, "geometric sizes must be positive")
		}
		if c.Q <= 1 {
			return configErr("q", c.Q, "the geometric growth factor must be larger than 1")
		}
		for k := range nodes {
			nodes[k] = c.YMin * math.Pow(c.Q, float64(k))
		}
	}
	mean := arithmeticMean
	if c.Distribution != Linear {
		mean = geometricMean
	}
	g.fromNodes(nodes, mean)
	return nil
}

func (g *SizeGrid) buildList() error {
	l := g.cfg.List
	if len(l) == 0 {
		return configErr("list", l, "the size list is empty")
	}
	for i, v := range l {
		if v <= 0 {
			return configErr("list", l, "sizes must be positive")
		}
		if i > 0 && !(v > l[i-1]) {
			return configErr("list", l, "sizes must be strictly increasing")
		}
	}
	if g.cfg.Position == Center && len(l) < 2 {
		return configErr("list", l, "center placement requires at least two boundaries")
	}
	nodes := append([]float64(nil), l...)
	g.fromNodes(nodes, geometricMean)
	if g.cfg.P > 0 && g.cfg.P != len(g.x) {
		return configErr("P", g.cfg.P, "the size list defines %d sections", len(g.x))
	}
	return nil
}

// fromNodes fills in representative sizes and boundaries from nodes,
// which are boundaries for center placement and representative sizes
// for interface placement.
func (g *SizeGrid) fromNodes(nodes []float64, mean func(a, b float64) float64) {
	if g.cfg.Position == Interface {
		g.x = nodes
		g.y = make([]float64, len(nodes)+1)
		g.y[0] = nodes[0]
		g.y[len(nodes)] = nodes[len(nodes)-1]
		for k := 1; k < len(nodes); k++ {
			g.y[k] = mean(nodes[k-1], nodes[k])
		}
		return
	}
	g.y = nodes
	g.x = make([]float64, len(nodes)-1)
	for k := range g.x {
		g.x[k] = mean(nodes[k], nodes[k+1])
	}
}

func arithmeticMean(a, b float64) float64 { return (a + b) / 2 }
func geometricMean(a, b float64) float64  { return math.Sqrt(a * b) }

// P returns the number of sections.
func (g *SizeGrid) P() int { return len(g.x) }

// X returns the representative size of section i.
func (g *SizeGrid) X(i int) float64 { return g.x[i] }

// Xs returns a copy of the representative sizes.
func (g *SizeGrid) Xs() []float64 { return append([]float64(nil), g.x...) }

// Ys returns a copy of the section boundaries.
func (g *SizeGrid) Ys() []float64 { return append([]float64(nil), g.y...) }

// Config returns the configuration the grid was built from.
func (g *SizeGrid) Config() SizeGridConfig { return g.cfg }

// Mass returns the droplet mass [kg] of section i.
func (g *SizeGrid) Mass(i int) float64 { return g.xi[i] }

// MassOf converts size x into droplet mass [kg].
func (g *SizeGrid) MassOf(x float64) float64 {
	switch {
	case g.cfg.Dimension.Matches(unit.Meter3):
		return x * g.cfg.DropletDensity
	case g.cfg.Dimension.Matches(unit.Meter):
		return math.Pi / 6 * x * x * x * g.cfg.DropletDensity
	}
	return x
}

// SizeOf converts droplet mass m [kg] into the grid's size dimension.
func (g *SizeGrid) SizeOf(m float64) float64 {
	switch {
	case g.cfg.Dimension.Matches(unit.Meter3):
		return m / g.cfg.DropletDensity
	case g.cfg.Dimension.Matches(unit.Meter):
		return math.Cbrt(6 * m / (math.Pi * g.cfg.DropletDensity))
	}
	return m
}

// Diameter returns the diameter [m] of a droplet of mass m [kg] and
// density rho [kg/m³].
func Diameter(m, rho float64) float64 {
	return math.Cbrt(6 * m / (math.Pi * rho))
}

// XLowerIndex returns the largest section index i for which x_i ≤ d.
// It returns BelowGrid if d < x_0 and P if d > x_{P-1}.
func (g *SizeGrid) XLowerIndex(d float64) int {
	return lowerIndex(g.x, d)
}

// massLowerIndex is XLowerIndex in the droplet-mass coordinate.
func (g *SizeGrid) massLowerIndex(m float64) int {
	return lowerIndex(g.xi, m)
}

func lowerIndex(x []float64, d float64) int {
	p := len(x)
	switch {
	case d < x[0] || math.IsNaN(d):
		return BelowGrid
	case d > x[p-1]:
		return p
	}
	i := sort.SearchFloat64s(x, d)
	if x[i] == d {
		return i
	}
	return i - 1
}

// XLowerIndices applies XLowerIndex to every value in ds.
func (g *SizeGrid) XLowerIndices(ds []float64) []int {
	o := make([]int, len(ds))
	for i, d := range ds {
		o[i] = g.XLowerIndex(d)
	}
	return o
}

// width returns the droplet-mass width of section i.
func (g *SizeGrid) width(i int) float64 {
	lo, hi := g.y[i], g.y[i+1]
	w := g.MassOf(hi) - g.MassOf(lo)
	if w <= 0 { // none distribution or degenerate edge
		w = g.xi[i]
	}
	return w
}
