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

package aerosolutil

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/aerosol"
	"github.com/spatialmodel/aerosol/science/coalescence"
	"github.com/spatialmodel/aerosol/science/conductivity"
	"github.com/spatialmodel/aerosol/science/diffusivity"
	"github.com/spatialmodel/aerosol/science/drift"
	"github.com/spatialmodel/aerosol/science/growth"
	"github.com/spatialmodel/aerosol/science/nucleation"
)

// Case describes the mixture, the closure models, and the cells of a
// simulation. It is read from a TOML file; see LoadCase.
type Case struct {
	// Carrier is the name of the non-condensable species that closes the
	// mixture.
	Carrier string
	Species []SpeciesData

	Nucleation   Closure
	Coalescence  Closure
	Growth       Closure
	Diffusivity  Closure
	Conductivity Closure
	Drift        Closure

	// Initial gives the size distribution of the droplets in each cell
	// when the simulation does not start from a checkpoint.
	Initial aerosol.InitialDistribution

	Cells []CellData
	Faces []FaceData
}

// SpeciesData holds the properties of one species.
type SpeciesData struct {
	Name            string
	MolarMass       float64
	Condensable     bool
	LiquidDensity   float64
	SurfaceTension  float64
	Hvap            float64
	DiffusionVolume float64
	Antoine         []float64
}

// Closure selects a model by name and holds its parameters.
type Closure struct {
	Model  string
	Params map[string]interface{}
}

// CellData holds the initial state of one cell. Y and Z map species names
// to mass fractions, and N is the total droplet number [1/kg].
type CellData struct {
	Volume, T, P, Rho, Mu float64
	U                     []float64
	Y, Z                  map[string]float64
	N                     float64
}

// FaceData connects cell Owner to cell Neighbor, or to the boundary if
// Neighbor is negative.
type FaceData struct {
	Owner, Neighbor int
	Wall            bool
	Sf              []float64
	Phi             float64
}

// LoadCase reads a case from a TOML file.
func LoadCase(filename string) (*Case, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("aerosolutil: opening case file: %w", err)
	}
	defer f.Close()
	return ReadCase(f)
}

// ReadCase reads a case in TOML format from r.
func ReadCase(r io.Reader) (*Case, error) {
	c := new(Case)
	if _, err := toml.DecodeReader(r, c); err != nil {
		return nil, fmt.Errorf("aerosolutil: parsing case file: %w", err)
	}
	if len(c.Cells) == 0 {
		return nil, fmt.Errorf("aerosolutil: the case file does not contain any cells")
	}
	return c, nil
}

// Mixture returns the species of the case.
func (c *Case) Mixture() (aerosol.Mixture, error) {
	var mix aerosol.Mixture
	for _, s := range c.Species {
		sp := &aerosol.Species{
			Name:            s.Name,
			MolarMass:       s.MolarMass,
			Condensable:     s.Condensable,
			LiquidDensity:   s.LiquidDensity,
			SurfaceTension:  s.SurfaceTension,
			Hvap:            s.Hvap,
			DiffusionVolume: s.DiffusionVolume,
		}
		if s.Condensable {
			if len(s.Antoine) != 3 {
				return mix, fmt.Errorf("aerosolutil: species %s needs three Antoine coefficients but has %d", s.Name, len(s.Antoine))
			}
			copy(sp.Antoine[:], s.Antoine)
		}
		mix.Species = append(mix.Species, sp)
	}
	if c.Carrier == "" {
		return mix, fmt.Errorf("aerosolutil: the case file needs a Carrier species")
	}
	var err error
	if mix.Carrier, err = mix.Index(c.Carrier); err != nil {
		return mix, err
	}
	return mix, mix.Validate()
}

// SetClosures creates the closure models of the case and attaches them to s.
// Processes without a model are left unconfigured.
func (c *Case) SetClosures(s *aerosol.Sectional) error {
	mix := s.Mixture
	var err error
	if c.Nucleation.Model != "" {
		if s.Nucleation, err = nucleation.New(c.Nucleation.Model, c.Nucleation.Params, mix); err != nil {
			return err
		}
	}
	if c.Coalescence.Model != "" {
		if s.Kernel, err = coalescence.New(c.Coalescence.Model, c.Coalescence.Params, mix); err != nil {
			return err
		}
	}
	if c.Drift.Model != "" {
		if s.Drift, err = drift.New(c.Drift.Model, c.Drift.Params, mix); err != nil {
			return err
		}
	}
	if c.Growth.Model == "" {
		return nil
	}
	var d aerosol.Diffusivity
	if c.Diffusivity.Model != "" {
		if d, err = diffusivity.New(c.Diffusivity.Model, c.Diffusivity.Params, mix); err != nil {
			return err
		}
	}
	var k aerosol.Conductivity
	if c.Conductivity.Model != "" {
		if k, err = conductivity.New(c.Conductivity.Model, c.Conductivity.Params); err != nil {
			return err
		}
	}
	s.Growth, err = growth.New(c.Growth.Model, c.Growth.Params, mix, d, k)
	return err
}

// Build adds the cells and faces of the case to m. The droplets in each
// cell are spread over the sections of s according to c.Initial.
func (c *Case) Build(s *aerosol.Sectional, m *aerosol.Model) error {
	mix := s.Mixture
	cells := make([]*aerosol.Cell, len(c.Cells))
	for i, d := range c.Cells {
		cell := s.NewCell()
		cell.Volume, cell.T, cell.P, cell.Rho, cell.Mu = d.Volume, d.T, d.P, d.Rho, d.Mu
		if len(d.U) != 0 {
			if len(d.U) != 3 {
				return fmt.Errorf("aerosolutil: cell %d: velocity must have three components", i)
			}
			copy(cell.U[:], d.U)
		}
		for _, f := range []struct {
			name string
			src  map[string]float64
			dst  []float64
		}{{"Y", d.Y, cell.Y}, {"Z", d.Z, cell.Z}} {
			for sp, v := range f.src {
				j, err := mix.Index(sp)
				if err != nil {
					return fmt.Errorf("aerosolutil: cell %d: %s: %w", i, f.name, err)
				}
				f.dst[j] = v
			}
		}
		aerosol.Rescale(cell, mix.Carrier, s.Config.MassConservationTolerance, 1)
		if err := s.Initialize(cell, d.N, c.Initial); err != nil {
			return fmt.Errorf("aerosolutil: cell %d: %w", i, err)
		}
		cells[i] = cell
	}
	m.Mixture = mix
	m.AddCells(cells...)

	for i, d := range c.Faces {
		if d.Owner < 0 || d.Owner >= len(cells) || d.Neighbor >= len(cells) {
			return fmt.Errorf("aerosolutil: face %d refers to a cell that does not exist", i)
		}
		f := &aerosol.Face{
			Owner: cells[d.Owner],
			Wall:  d.Wall,
			Phi:   d.Phi,
			Phid:  make([]float64, s.Grid.P()),
		}
		if d.Neighbor >= 0 {
			f.Neighbor = cells[d.Neighbor]
		}
		if len(d.Sf) != 0 {
			if len(d.Sf) != 3 {
				return fmt.Errorf("aerosolutil: face %d: area vector must have three components", i)
			}
			copy(f.Sf[:], d.Sf)
		}
		m.Faces = append(m.Faces, f)
	}
	return nil
}
