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
	"sync"
)

// Physical constants.
const (
	KBoltzmann = 1.380649e-23           // J/K
	NAvogadro  = 6.02214076e23          // 1/mol
	RGas       = KBoltzmann * NAvogadro // J/mol/K
)

// Species holds the properties of one chemical species in the mixture.
type Species struct {
	Name string

	MolarMass       float64 `desc:"Molar mass" units:"kg/mol"`
	Condensable     bool    // Whether the species can exist in the liquid phase.
	LiquidDensity   float64 `desc:"Liquid density" units:"kg/m³"`
	SurfaceTension  float64 `desc:"Liquid surface tension" units:"N/m"`
	Hvap            float64 `desc:"Latent heat of vaporization" units:"J/kg"`
	DiffusionVolume float64 `desc:"Fuller atomic diffusion volume" units:"cm³/mol"`

	// Antoine holds coefficients A, B, C of the saturation pressure
	// correlation log10(psat/Pa) = A - B/(C+T).
	Antoine [3]float64
}

// Psat returns the saturation vapor pressure [Pa] at temperature T [K].
func (s Species) Psat(T float64) float64 {
	if !s.Condensable {
		return math.Inf(1)
	}
	return math.Pow(10, s.Antoine[0]-s.Antoine[1]/(s.Antoine[2]+T))
}

// Mixture is the set of species tracked in every cell. Carrier is the index
// of the non-condensable species whose mass fraction closes the mixture.
type Mixture struct {
	Species []*Species
	Carrier int
}

// Len returns the number of species.
func (m Mixture) Len() int { return len(m.Species) }

// Condensables returns the indices of the condensable species.
func (m Mixture) Condensables() []int {
	var o []int
	for i, s := range m.Species {
		if s.Condensable {
			o = append(o, i)
		}
	}
	return o
}

// Index returns the index of the species with the given name.
func (m Mixture) Index(name string) (int, error) {
	for i, s := range m.Species {
		if s.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("aerosol: species %s is not in the mixture", name)
}

// Validate checks the species data.
func (m Mixture) Validate() error {
	if len(m.Species) == 0 {
		return configErr("Mixture", 0, "at least one species is required")
	}
	if m.Carrier < 0 || m.Carrier >= len(m.Species) {
		return configErr("Mixture.Carrier", m.Carrier, "must index a species")
	}
	if m.Species[m.Carrier].Condensable {
		return configErr("Mixture.Carrier", m.Species[m.Carrier].Name, "carrier gas must not be condensable")
	}
	for _, s := range m.Species {
		if s.MolarMass <= 0 {
			return configErr("Species.MolarMass", s.MolarMass, "species %s must have a positive molar mass", s.Name)
		}
		if s.Condensable && s.LiquidDensity <= 0 {
			return configErr("Species.LiquidDensity", s.LiquidDensity, "condensable species %s must have a positive liquid density", s.Name)
		}
	}
	return nil
}

// Cell holds the state of a single computational cell.
type Cell struct {
	sync.Mutex

	Index  int
	Volume float64    `desc:"Cell volume" units:"m³"`
	Rho    float64    `desc:"Mixture density" units:"kg/m³"`
	T      float64    `desc:"Temperature" units:"K"`
	P      float64    `desc:"Pressure" units:"Pa"`
	Mu     float64    `desc:"Dynamic viscosity" units:"kg/m/s"`
	U      [3]float64 `desc:"Mixture velocity" units:"m/s"`

	Y []float64 // vapor mass fraction of each species [kg/kg mixture]
	Z []float64 // liquid mass fraction of each species [kg/kg mixture]

	M []float64    // droplet number of each section [1/kg mixture]
	V [][3]float64 // droplet velocity of each section [m/s]
	J []float64    // net droplet number source of each section [1/kg/s]
	S []float64    // net vapor to liquid mass transfer of each species [kg/m³/s]

	HvapS  float64 `desc:"Latent heat release by phase change" units:"W/m³"`
	Defect float64 `desc:"Droplet mass that left the size grid" units:"kg/kg"`

	// Diag holds diagnostic values for this cell.
	Diag Diagnostics
	// Mean holds the time averages of Diag; see TimeAverage.
	Mean Diagnostics

	m0         []float64 // droplet numbers at the start of the internal step
	stepDefect float64   // Defect added during the current time step
}

// NewCell returns a cell sized for the given number of sections and species.
func NewCell(index, nSections, nSpecies int) *Cell {
	return &Cell{
		Index: index,
		Y:     make([]float64, nSpecies),
		Z:     make([]float64, nSpecies),
		S:     make([]float64, nSpecies),
		M:     make([]float64, nSections),
		V:     make([][3]float64, nSections),
		J:     make([]float64, nSections),
	}
}

// resize changes the number of sections in c, discarding section data.
func (c *Cell) resize(nSections int) {
	c.M = make([]float64, nSections)
	c.V = make([][3]float64, nSections)
	c.J = make([]float64, nSections)
}

// storeM0 keeps a copy of the droplet numbers.
func (c *Cell) storeM0() {
	c.m0 = append(c.m0[:0], c.M...)
}

// LiquidFraction returns the total liquid mass fraction.
func (c *Cell) LiquidFraction() float64 {
	var z float64
	for _, v := range c.Z {
		z += v
	}
	return z
}

// Face is a face shared between a cell and a neighbor or a boundary.
type Face struct {
	Owner    *Cell
	Neighbor *Cell // nil on boundary faces
	Wall     bool

	Sf   [3]float64 `desc:"Face area vector pointing out of Owner" units:"m²"`
	Phi  float64    `desc:"Mixture mass flux out of Owner" units:"kg/s"`
	Phid []float64  // droplet mass flux of each section out of Owner [kg/s]
}

// Diagnostic is a named per-cell diagnostic quantity.
type Diagnostic int

// Diagnostics tracked by the sectional model.
const (
	Dcm     Diagnostic = iota // count mean diameter [m]
	Dmm                       // mass mean diameter [m]
	Jnuc                      // nucleation rate [1/m³/s]
	Dnuc                      // nucleus diameter [m]
	Jcoa                      // coalescence event rate [1/m³/s]
	CoCond                    // condensation Courant number
	CoCoa                     // coalescence Courant number
	CoDrift                   // drift Courant number
	NumDiagnostics
)

var diagnosticNames = [NumDiagnostics]string{
	"dcm", "dmm", "Jnuc", "dnuc", "Jcoa", "CoCond", "CoCoa", "CoDrift",
}

func (d Diagnostic) String() string {
	if d < 0 || d >= NumDiagnostics {
		return fmt.Sprintf("Diagnostic(%d)", int(d))
	}
	return diagnosticNames[d]
}

// ParseDiagnostic returns the diagnostic with the given name.
func ParseDiagnostic(name string) (Diagnostic, error) {
	for i, n := range diagnosticNames {
		if n == name {
			return Diagnostic(i), nil
		}
	}
	return -1, fmt.Errorf("aerosol: unknown diagnostic %q", name)
}

// Diagnostics holds one value per Diagnostic.
type Diagnostics [NumDiagnostics]float64
