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
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestNewSectionalErrors(t *testing.T) {
	tests := map[string]func(cfg *SectionalConfig, mix *Mixture){
		"maxCFL":         func(cfg *SectionalConfig, mix *Mixture) { cfg.MaxCFL = 0 },
		"maxCoaFraction": func(cfg *SectionalConfig, mix *Mixture) { cfg.MaxCoaFraction = 1 },
		"maxSubsteps":    func(cfg *SectionalConfig, mix *Mixture) { cfg.MaxSubsteps = 0 },
		"phi":            func(cfg *SectionalConfig, mix *Mixture) { cfg.Phi = 1.5 },
		"grid":           func(cfg *SectionalConfig, mix *Mixture) { cfg.Grid.YMax = cfg.Grid.YMin },
		"carrier":        func(cfg *SectionalConfig, mix *Mixture) { mix.Carrier = 1 },
		"no species":     func(cfg *SectionalConfig, mix *Mixture) { mix.Species = nil },
	}
	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := testUnitConfig()
			mix := testMixture()
			modify(&cfg, &mix)
			_, err := NewSectional(cfg, mix)
			assert.True(t, errors.Is(err, ErrConfiguration), "%v", err)
		})
	}
}

func TestParseDefectPolicy(t *testing.T) {
	for _, p := range []DefectPolicy{Discard, LastSection} {
		p2, err := ParseDefectPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, p2)
	}
	p, err := ParseDefectPolicy("")
	require.NoError(t, err)
	assert.Equal(t, Discard, p)
	_, err = ParseDefectPolicy("keep")
	assert.Error(t, err)
}

func TestSectionalString(t *testing.T) {
	s := testSectional(t, testUnitConfig())
	assert.Equal(t, "sectional model: 5 linear sections (1–5), twoMoment redistribution", s.String())
}

func TestSectionalUpdate(t *testing.T) {
	cfg := testUnitConfig()
	cfg.DoCoa = true
	cfg.Grid.DropletDensity = 1000
	s := testSectional(t, cfg)
	s.Kernel = constantKernel(0.1)

	c := testCell(s)
	c.M[0] = 1
	c.M[1] = 0.5
	m := &Model{Mixture: s.Mixture, Dt: 1}
	m.AddCells(c)
	before := liquidMass(s, c)

	require.NoError(t, s.Update()(m))
	assert.True(t, s.Coa.Prepared())
	assert.True(t, floats.Sum(c.M) < 1.5, "droplet number should decrease")
	if different(liquidMass(s, c), before, testTolerance) {
		t.Errorf("liquid mass %g != %g", liquidMass(s, c), before)
	}
	assert.True(t, c.Diag[Jcoa] > 0)
	assert.True(t, c.Diag[Dcm] > 0)
	assert.True(t, c.Diag[Dmm] >= c.Diag[Dcm])
	for _, v := range c.V {
		assert.Equal(t, c.U, v)
	}
	assert.Equal(t, 0., s.DomainDefect())
}

// With too few substeps a section would lose more droplets than it holds;
// collisions are limited instead so that no droplet mass is created.
func TestSectionalUpdateCoalescenceSubstepLimit(t *testing.T) {
	cfg := testUnitConfig()
	cfg.DoCoa = true
	cfg.MaxSubsteps = 1
	cfg.Grid.DropletDensity = 1000
	s := testSectional(t, cfg)
	s.Kernel = constantKernel(5)
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	s.Log = log

	c := testCell(s)
	c.M[0] = 1
	c.M[1] = 1
	m := &Model{Mixture: s.Mixture, Dt: 1}
	m.AddCells(c)
	before := liquidMass(s, c)

	require.NoError(t, s.Update()(m))
	for i, v := range c.M {
		assert.True(t, v >= 0, "M[%d] = %g", i, v)
	}
	assert.Equal(t, 0., c.Defect)
	if different(liquidMass(s, c), before, testTolerance) {
		t.Errorf("liquid mass %g != %g", liquidMass(s, c), before)
	}
	// Section 0 collides with itself until it is empty, which leaves
	// nothing for the (0, 1) pair; section 1 then collides with itself.
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0.75, 0}, c.M, 1e-12)
	assert.Contains(t, buf.String(), "coalescence substep limit reached")
}

func TestSectionalUpdateNotConfigured(t *testing.T) {
	cfg := testUnitConfig()
	cfg.DoCoa = true
	s := testSectional(t, cfg)
	m := &Model{Mixture: s.Mixture, Dt: 1}
	m.AddCells(testCell(s))
	err := s.Update()(m)
	assert.True(t, errors.Is(err, ErrStrategyNotConfigured), "%v", err)

	s = testSectional(t, testUnitConfig())
	s.Species = nil
	err = s.Update()(m)
	assert.True(t, errors.Is(err, ErrStrategyNotConfigured), "%v", err)
}

func TestReportDefect(t *testing.T) {
	s := testSectional(t, testUnitConfig())
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	s.Log = log

	c := testCell(s)
	c.Volume = 2
	c.M[0] = 1
	s.overflow(c, c.M, 6, 0.5)
	assert.Equal(t, 3., c.Defect)

	m := &Model{}
	m.AddCells(c)
	require.NoError(t, s.ReportDefect()(m))
	assert.Equal(t, 6., s.DomainDefect())
	assert.Contains(t, buf.String(), "droplets are growing beyond the largest section")

	// The defect of a step is only counted once.
	buf.Reset()
	require.NoError(t, s.ReportDefect()(m))
	assert.Equal(t, 6., s.DomainDefect())
	assert.Empty(t, buf.String())
	assert.Equal(t, 3., c.Defect)
}

func TestOverflowLastSection(t *testing.T) {
	cfg := testUnitConfig()
	cfg.DefectPolicy = LastSection
	s := testSectional(t, cfg)
	c := testCell(s)
	s.overflow(c, c.M, 6, 0.5)
	assert.Equal(t, 0., c.Defect)
	assert.InDelta(t, 0.6, c.M[4], 1e-12)
}
