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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// fixedNucleation forms droplets of diameter DStar at rate J from water.
type fixedNucleation struct {
	J, DStar float64
}

func (n fixedNucleation) Rate(c *Cell) (NucleationRate, error) {
	return NucleationRate{J: n.J, DStar: n.DStar, Composition: []float64{0, 1}}, nil
}

// fixedGrowth changes the mass of every droplet at a fixed rate.
type fixedGrowth []float64

func (g fixedGrowth) Rate(c *Cell, d float64, dmdt []float64) error {
	copy(dmdt, g)
	return nil
}

func TestNucleation(t *testing.T) {
	cfg := testUnitConfig()
	cfg.DoNuc = true
	s := testSectional(t, cfg)
	dStar := Diameter(2, 1000) // nuclei of 2 kg
	s.Nucleation = fixedNucleation{J: 0.01, DStar: dStar}

	c := testCell(s)
	require.NoError(t, s.FractionalStepInternal(c, 1))
	require.NoError(t, s.Species.Solve(c, 1))

	assert.InDelta(t, 0.01, floats.Sum(c.M), 1e-12)
	assert.InDelta(t, 0.02, liquidMass(s, c), 1e-12)
	assert.InDelta(t, 0.01, c.Diag[Jnuc], 1e-12)
	assert.Equal(t, dStar, c.Diag[Dnuc])
	assert.InDelta(t, 0.02, c.S[1], 1e-12)
	assert.InDelta(t, 0.08, c.Y[1], 1e-12)
	assert.InDelta(t, 0.02, c.Z[1], 1e-12)
	assert.Equal(t, 0.9, c.Y[0])
	assert.InDelta(t, 0.02*2.26e6, c.HvapS, 1e-6)
	assert.InDelta(t, 0.01, floats.Sum(c.J), 1e-12)
}

func TestNucleationVaporLimit(t *testing.T) {
	cfg := testUnitConfig()
	cfg.DoNuc = true
	s := testSectional(t, cfg)
	s.Nucleation = fixedNucleation{J: 1, DStar: Diameter(2, 1000)}

	c := testCell(s)
	c.Y[0], c.Y[1] = 0.99, 0.01
	require.NoError(t, s.FractionalStepInternal(c, 1))
	require.NoError(t, s.Species.Solve(c, 1))

	// Only 0.01 kg/kg of vapor is available for 2 kg nuclei.
	assert.InDelta(t, 0.005, floats.Sum(c.M), 1e-12)
	assert.InDelta(t, 0, c.Y[1], 1e-12)
	assert.InDelta(t, 0.01, c.Z[1], 1e-12)
}

func TestCondensation(t *testing.T) {
	cfg := testUnitConfig()
	cfg.DoCond = true
	s := testSectional(t, cfg)
	s.Growth = fixedGrowth{0, 0.5}

	c := testCell(s)
	c.M[1] = 0.01
	c.Z[1] = 0.02
	c.Y[0] = 0.88
	require.NoError(t, s.FractionalStepInternal(c, 1))
	require.NoError(t, s.Species.Solve(c, 1))

	// Droplets of 2 kg grow to 2.5 kg and are split between the 2 and
	// 3 kg sections.
	assert.InDelta(t, 0.005, c.M[1], 1e-12)
	assert.InDelta(t, 0.005, c.M[2], 1e-12)
	assert.InDelta(t, 0.025, liquidMass(s, c), 1e-12)
	assert.InDelta(t, 0.095, c.Y[1], 1e-12)
	assert.InDelta(t, 0.025, c.Z[1], 1e-12)
	assert.InDelta(t, 0.005, c.S[1], 1e-12)
	assert.InDelta(t, 0.5, c.Diag[CoCond], 1e-12)
	assert.InDelta(t, -0.005, c.J[1], 1e-12)
	assert.InDelta(t, 0.005, c.J[2], 1e-12)
}

func TestCondensationToNextSection(t *testing.T) {
	cfg := testUnitConfig()
	cfg.Grid = SizeGridConfig{
		P:              5,
		Distribution:   Logarithmic,
		Position:       Center,
		Dimension:      DiameterDimension,
		YMin:           1e-8,
		YMax:           1e-5,
		DropletDensity: 1000,
	}
	cfg.DoCond = true
	cfg.MaxCFL = 100
	s := testSectional(t, cfg)
	s.Growth = fixedGrowth{0, s.Grid.Mass(1) - s.Grid.Mass(0)}

	c := testCell(s)
	c.M[0] = 1
	require.NoError(t, s.FractionalStepInternal(c, 1))

	// Every droplet of section 0 grows to the size of section 1.
	assert.InDelta(t, 0, c.M[0], 1e-12)
	assert.InDelta(t, 1, c.M[1], 1e-12)
	assert.InDelta(t, 1, floats.Sum(c.M), 1e-12)
	if different(liquidMass(s, c), s.Grid.Mass(1), testTolerance) {
		t.Errorf("liquid mass %g != %g", liquidMass(s, c), s.Grid.Mass(1))
	}
}

func TestCondensationSubsteps(t *testing.T) {
	cfg := testUnitConfig()
	cfg.DoCond = true
	cfg.MaxCFL = 0.25
	s := testSectional(t, cfg)
	s.Growth = fixedGrowth{0, 0.5}

	c := testCell(s)
	c.M[1] = 0.01
	c.Z[1] = 0.02
	c.Y[0] = 0.88
	require.NoError(t, s.FractionalStepInternal(c, 1))
	require.NoError(t, s.Species.Solve(c, 1))

	assert.InDelta(t, 0.01, floats.Sum(c.M), 1e-12)
	assert.InDelta(t, 0.025, liquidMass(s, c), 1e-12)
	assert.InDelta(t, 0.095, c.Y[1], 1e-12)
}

func TestEvaporation(t *testing.T) {
	cfg := testUnitConfig()
	cfg.DoCond = true
	cfg.MaxCFL = 10
	s := testSectional(t, cfg)
	s.Growth = fixedGrowth{0, -3}

	c := testCell(s)
	c.M[1] = 0.01
	c.Z[1] = 0.05
	c.Y[0] = 0.85
	require.NoError(t, s.FractionalStepInternal(c, 1))
	require.NoError(t, s.Species.Solve(c, 1))

	// The droplets evaporate completely and return their water to the vapor.
	assert.Equal(t, 0., floats.Sum(c.M))
	assert.InDelta(t, 0.12, c.Y[1], 1e-12)
	assert.InDelta(t, 0.03, c.Z[1], 1e-12)
	assert.InDelta(t, -0.02, c.S[1], 1e-12)
	assert.True(t, c.HvapS < 0)
}

func TestEvaporationLiquidLimit(t *testing.T) {
	cfg := testUnitConfig()
	cfg.DoCond = true
	cfg.MaxCFL = 10
	s := testSectional(t, cfg)
	s.Growth = fixedGrowth{0, -3}

	c := testCell(s)
	c.M[1] = 0.01
	c.Z[1] = 0.01
	c.Y[0] = 0.89
	require.NoError(t, s.FractionalStepInternal(c, 1))
	require.NoError(t, s.Species.Solve(c, 1))

	// Only 0.01 kg/kg of liquid can evaporate.
	assert.InDelta(t, 0.11, c.Y[1], 1e-12)
	assert.InDelta(t, 0, c.Z[1], 1e-12)
	assert.InDelta(t, 0.01, floats.Sum(c.M), 1e-12)
	assert.InDelta(t, 0.01, liquidMass(s, c), 1e-12)
}

func TestEvaporationBelowGrid(t *testing.T) {
	cfg := testUnitConfig()
	cfg.DoCond = true
	s := testSectional(t, cfg)
	s.Growth = fixedGrowth{0, -0.5}
	s.Config.MaxCFL = 1

	c := testCell(s)
	c.M[0] = 0.01
	c.Z[1] = 0.01
	c.Y[0] = 0.89
	require.NoError(t, s.FractionalStepInternal(c, 1))

	// Droplets shrinking below the smallest section stay in it with
	// their mass conserved.
	assert.InDelta(t, 0.005, c.M[0], 1e-12)
	assert.InDelta(t, 0.005, liquidMass(s, c), 1e-12)
}

func TestCondensationOverflow(t *testing.T) {
	cfg := testUnitConfig()
	cfg.DoCond = true
	cfg.MaxCFL = 1
	s := testSectional(t, cfg)
	s.Growth = fixedGrowth{0, 0.4}

	c := testCell(s)
	c.M[4] = 0.01
	c.Z[1] = 0.05
	c.Y[0] = 0.85
	require.NoError(t, s.FractionalStepInternal(c, 1))

	assert.Equal(t, 0., c.M[4])
	assert.InDelta(t, 0.054, c.Defect, 1e-12)
}

func TestInternalNotConfigured(t *testing.T) {
	cfg := testUnitConfig()
	cfg.DoNuc = true
	s := testSectional(t, cfg)
	c := testCell(s)
	err := s.FractionalStepInternal(c, 1)
	assert.True(t, errors.Is(err, ErrStrategyNotConfigured), "err = %v", err)

	s.Config.DoNuc = false
	s.Config.DoCond = true
	err = s.FractionalStepInternal(c, 1)
	assert.True(t, errors.Is(err, ErrStrategyNotConfigured), "err = %v", err)

	s.Config.DoCond = false
	assert.NoError(t, s.FractionalStepInternal(c, 1))
}

func TestSubsteps(t *testing.T) {
	assert.Equal(t, 1, substeps(0, 0.5, 10))
	assert.Equal(t, 1, substeps(math.NaN(), 0.5, 10))
	assert.Equal(t, 1, substeps(0.4, 0.5, 10))
	assert.Equal(t, 3, substeps(1.2, 0.5, 10))
	assert.Equal(t, 10, substeps(100, 0.5, 10))
}
