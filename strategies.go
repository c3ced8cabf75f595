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

// NucleationRate holds the result of a nucleation rate calculation.
type NucleationRate struct {
	J     float64 // nucleation rate [1/m³/s]
	DStar float64 // critical (nucleus) diameter [m]

	// Composition is the mass fraction of each species in the nuclei.
	Composition []float64
}

// Nucleation calculates the rate at which new droplets form from the vapor.
type Nucleation interface {
	Rate(c *Cell) (NucleationRate, error)
}

// Growth calculates condensational growth (or evaporation) of droplets.
type Growth interface {
	// Rate sets dmdt[j] to the rate of change [kg/s] of the mass of
	// species j in a droplet of diameter d [m] in cell c.
	Rate(c *Cell, d float64, dmdt []float64) error
}

// CoalescenceKernel calculates the rate at which droplets collide and merge.
type CoalescenceKernel interface {
	// Rate returns the coalescence kernel [m³/s] for droplets of
	// diameters di and dj [m] in cell c.
	Rate(di, dj float64, c *Cell) float64
}

// Diffusivity calculates the binary diffusion coefficient [m²/s] of species
// j in the carrier gas.
type Diffusivity interface {
	D(j int, T, p float64) float64
}

// Conductivity calculates the thermal conductivity [W/m/K] of the gas.
type Conductivity interface {
	K(T, p float64) float64
}

// Drift calculates the velocity of droplets relative to the gas.
type Drift interface {
	// Velocity returns the slip velocity [m/s] of a droplet with diameter
	// d [m] and density rho [kg/m³] in cell c.
	Velocity(c *Cell, d, rho float64) [3]float64
}

// SpeciesSolver applies the vapor to liquid mass transfer c.S to the
// species mass fractions.
type SpeciesSolver interface {
	Solve(c *Cell, Δt float64) error
}

// LocalSpecies is a SpeciesSolver that applies the mass transfer to each
// cell independently, without transport.
type LocalSpecies struct{}

// Solve implements SpeciesSolver.
func (LocalSpecies) Solve(c *Cell, Δt float64) error {
	if c.Rho <= 0 {
		return nil
	}
	for j, s := range c.S {
		if s == 0 {
			continue
		}
		dm := s * Δt / c.Rho
		c.Y[j] -= dm
		c.Z[j] += dm
	}
	return nil
}
