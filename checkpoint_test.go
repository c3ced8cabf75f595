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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointFile(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "0.5.ncf"), CheckpointFile("out", 0.5))
	assert.Equal(t, filepath.Join("out", "0.ncf"), CheckpointFile("out", 0))
}

func TestCheckpointRoundTrip(t *testing.T) {
	s := testSectional(t, testUnitConfig())
	m := &Model{Mixture: s.Mixture, Time: 0.25}
	for i := 0; i < 3; i++ {
		c := testCell(s)
		c.T = 300 + float64(i)
		c.Z[1] = 0.01 * float64(i)
		c.M[i] = float64(i + 1)
		c.V[i] = [3]float64{1, 2, float64(i)}
		m.AddCells(c)
	}
	dir := filepath.Join(t.TempDir(), "checkpoints")
	fname, err := s.WriteCheckpoint(context.Background(), dir, m)
	require.NoError(t, err)
	assert.Equal(t, CheckpointFile(dir, 0.25), fname)

	m2 := &Model{Mixture: s.Mixture}
	for i := 0; i < 3; i++ {
		m2.AddCells(s.NewCell())
	}
	f, err := os.Open(fname)
	require.NoError(t, err)
	defer f.Close()
	tm, err := s.ReadCheckpoint(f, m2, InitialDistribution{})
	require.NoError(t, err)
	assert.Equal(t, 0.25, tm)

	for i, c := range m2.Cells() {
		want := m.Cells()[i]
		assert.Equal(t, want.T, c.T)
		assert.Equal(t, want.P, c.P)
		assert.Equal(t, want.Rho, c.Rho)
		assert.Equal(t, want.Y, c.Y)
		assert.Equal(t, want.Z, c.Z)
		assert.Equal(t, want.M, c.M)
		assert.Equal(t, want.V, c.V)
	}

	// A checkpoint from a smaller grid cannot be read.
	cfg := testUnitConfig()
	cfg.Grid.P = 6
	cfg.Grid.YMax = 6
	big := testSectional(t, cfg)
	m3 := &Model{Mixture: s.Mixture}
	m3.AddCells(big.NewCell(), big.NewCell(), big.NewCell())
	_, err = big.ReadCheckpoint(f, m3, InitialDistribution{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different size grid")
	assert.Equal(t, 6, big.Grid.P())
}

func TestCheckpointExtendedGrid(t *testing.T) {
	cfg := testUnitConfig()
	cfg.CorrectThreshold = 0.5
	s := testSectional(t, cfg)
	c := testCell(s)
	c.M[0] = 1
	c.M[4] = 2
	m := &Model{Mixture: s.Mixture, Time: 2}
	m.AddCells(c)
	require.NoError(t, s.CorrectSizeDistribution()(m))
	require.Equal(t, 6, s.Grid.P())
	c.M[5] = 1
	c.V[5] = [3]float64{0, 0, -1}
	before := liquidMass(s, c)

	fname, err := s.WriteCheckpoint(context.Background(), t.TempDir(), m)
	require.NoError(t, err)

	// Restart with the configured five-section grid.
	s2 := testSectional(t, cfg)
	m2 := &Model{Mixture: s2.Mixture}
	m2.AddCells(s2.NewCell())
	f, err := os.Open(fname)
	require.NoError(t, err)
	defer f.Close()
	_, err = s2.ReadCheckpoint(f, m2, InitialDistribution{})
	require.NoError(t, err)

	assert.Equal(t, s.Grid.Xs(), s2.Grid.Xs())
	assert.Equal(t, 6, s2.Config.Grid.P)
	assert.True(t, s2.Coa.Prepared())
	assert.Len(t, s2.Coa.Pairs(), 6*7/2)
	c2 := m2.Cells()[0]
	assert.Equal(t, c.M, c2.M)
	assert.Equal(t, c.V, c2.V)
	if different(liquidMass(s2, c2), before, testTolerance) {
		t.Errorf("liquid mass %g != %g", liquidMass(s2, c2), before)
	}

	// A checkpoint from a grid that cannot be reached by extending the
	// configured one is rejected.
	other := testUnitConfig()
	other.Grid.YMin = 2
	other.Grid.YMax = 6
	s3 := testSectional(t, other)
	m3 := &Model{Mixture: s3.Mixture}
	m3.AddCells(s3.NewCell())
	_, err = s3.ReadCheckpoint(f, m3, InitialDistribution{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different size grid")
}

func TestCheckpointTotalNumber(t *testing.T) {
	s := testSectional(t, testUnitConfig())
	fname := filepath.Join(t.TempDir(), "total.ncf")

	h := cdf.NewHeader([]string{"cell"}, []int{2})
	h.AddAttribute("", "time", []float64{3})
	h.AddVariable("M", []string{"cell"}, []float64{0})
	h.AddVariable("T", []string{"cell"}, []float64{0})
	h.Define()
	w, err := os.Create(fname)
	require.NoError(t, err)
	f, err := cdf.Create(w, h)
	require.NoError(t, err)
	for name, v := range map[string][]float64{"M": {10, 20}, "T": {280, 290}} {
		a := sparse.ZerosDense(2)
		copy(a.Elements, v)
		require.NoError(t, writeNCF(f, name, a))
	}
	require.NoError(t, cdf.UpdateNumRecs(w))
	require.NoError(t, w.Close())

	m := &Model{Mixture: s.Mixture}
	m.AddCells(s.NewCell(), s.NewCell())
	r, err := os.Open(fname)
	require.NoError(t, err)
	defer r.Close()
	tm, err := s.ReadCheckpoint(r, m, InitialDistribution{})
	require.NoError(t, err)
	assert.Equal(t, 3., tm)
	assert.Equal(t, []float64{10, 0, 0, 0, 0}, m.Cells()[0].M)
	assert.Equal(t, []float64{20, 0, 0, 0, 0}, m.Cells()[1].M)
	assert.Equal(t, 290., m.Cells()[1].T)
}
