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
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spatialmodel/aerosol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

const testCase = `
Carrier = "air"

[[Species]]
Name = "air"
MolarMass = 0.02897

[[Species]]
Name = "water"
MolarMass = 0.018015
Condensable = true
LiquidDensity = 998.0
SurfaceTension = 0.072
Hvap = 2.26e6
DiffusionVolume = 13.1
Antoine = [10.196, 1730.63, -39.724]

[Coalescence]
Model = "constant"
[Coalescence.Params]
beta = 1.0e-15

[Initial]
CMD = 1.0e-7
Sigma = 1.5

[[Cells]]
Volume = 1.0e-6
T = 300.0
P = 101325.0
Rho = 1.2
Mu = 1.8e-5
N = 1.0e10
[Cells.Y]
air = 0.99
water = 0.01

[[Cells]]
Volume = 1.0e-6
T = 300.0
P = 101325.0
Rho = 1.2
Mu = 1.8e-5
U = [0.1, 0.0, 0.0]
N = 2.0e10
[Cells.Y]
air = 0.995
water = 0.005

[[Faces]]
Owner = 0
Neighbor = 1
Sf = [1.0e-4, 0.0, 0.0]
Phi = 1.2e-5

[[Faces]]
Owner = 1
Neighbor = -1
Wall = true
Sf = [1.0e-4, 0.0, 0.0]
`

func testSectionalConfig() aerosol.SectionalConfig {
	cfg := aerosol.DefaultSectionalConfig()
	cfg.Grid.P = 5
	cfg.DoNuc = false
	cfg.DoCond = false
	return cfg
}

func TestReadCase(t *testing.T) {
	c, err := ReadCase(strings.NewReader(testCase))
	require.NoError(t, err)
	assert.Len(t, c.Cells, 2)
	assert.Len(t, c.Faces, 2)
	assert.Equal(t, "constant", c.Coalescence.Model)
	assert.Equal(t, 1.5, c.Initial.Sigma)

	mix, err := c.Mixture()
	require.NoError(t, err)
	assert.Equal(t, 0, mix.Carrier)
	assert.Equal(t, []int{1}, mix.Condensables())
	assert.Equal(t, [3]float64{10.196, 1730.63, -39.724}, mix.Species[1].Antoine)
}

func TestCaseErrors(t *testing.T) {
	t.Run("no cells", func(t *testing.T) {
		_, err := ReadCase(strings.NewReader(`Carrier = "air"`))
		assert.Error(t, err)
	})
	t.Run("unknown carrier", func(t *testing.T) {
		c, err := ReadCase(strings.NewReader(strings.Replace(testCase, `Carrier = "air"`, `Carrier = "argon"`, 1)))
		require.NoError(t, err)
		_, err = c.Mixture()
		assert.Error(t, err)
	})
	t.Run("antoine", func(t *testing.T) {
		c, err := ReadCase(strings.NewReader(strings.Replace(testCase, "Antoine = [10.196, 1730.63, -39.724]", "Antoine = [10.196]", 1)))
		require.NoError(t, err)
		_, err = c.Mixture()
		assert.Error(t, err)
	})
	t.Run("unknown species", func(t *testing.T) {
		c, err := ReadCase(strings.NewReader(strings.Replace(testCase, "water = 0.005", "ethanol = 0.005", 1)))
		require.NoError(t, err)
		_, _, err = Setup(c, testSectionalConfig(), nil, nil)
		assert.Error(t, err)
	})
	t.Run("unknown model", func(t *testing.T) {
		c, err := ReadCase(strings.NewReader(strings.Replace(testCase, `Model = "constant"`, `Model = "gravitational"`, 1)))
		require.NoError(t, err)
		_, _, err = Setup(c, testSectionalConfig(), nil, nil)
		assert.Error(t, err)
	})
}

func TestSetup(t *testing.T) {
	c, err := ReadCase(strings.NewReader(testCase))
	require.NoError(t, err)
	m, s, err := Setup(c, testSectionalConfig(), nil, nil)
	require.NoError(t, err)

	require.Len(t, m.Cells(), 2)
	require.Len(t, m.Faces, 2)
	assert.NotNil(t, s.Kernel)
	assert.Nil(t, s.Nucleation)
	assert.Nil(t, s.Growth)

	c0, c1 := m.Cells()[0], m.Cells()[1]
	assert.Equal(t, 1, c1.Index)
	assert.InDelta(t, 0.01, c0.Y[1], 1e-12)
	assert.InDelta(t, 1e10, floats.Sum(c0.M), 1)
	assert.InDelta(t, 2e10, floats.Sum(c1.M), 2)
	assert.Equal(t, [3]float64{0.1, 0, 0}, c1.U)
	assert.Equal(t, c1.U, c1.V[2])

	assert.Same(t, c1, m.Faces[0].Neighbor)
	assert.Nil(t, m.Faces[1].Neighbor)
	assert.True(t, m.Faces[1].Wall)
	assert.Len(t, m.Faces[0].Phid, 5)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	c, err := ReadCase(strings.NewReader(testCase))
	require.NoError(t, err)

	var out bytes.Buffer
	rc := RunConfig{
		LogFile:            filepath.Join(dir, "run.log"),
		OutputFile:         filepath.Join(dir, "output.ncf"),
		OutputVariables:    map[string]string{"N": "N", "total": "sum(N)"},
		CheckpointDir:      filepath.Join(dir, "checkpoints"),
		CheckpointInterval: 5e-4,
		Dt:                 1e-4,
		EndTime:            1e-3,
		MaxCo:              0.5,
		MaxDeltaT:          1e-2,
		Limits:             aerosol.DefaultLimits(),
	}
	cmd := versionCmd
	cmd.SetOutput(&out)
	defer cmd.SetOutput(nil)
	require.NoError(t, Run(context.Background(), cmd, c, testSectionalConfig(), rc))

	assert.FileExists(t, rc.OutputFile)
	assert.FileExists(t, rc.LogFile)
	assert.Contains(t, out.String(), "simulation complete")

	files, err := filepath.Glob(filepath.Join(rc.CheckpointDir, "*.ncf"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	var last *CheckpointReport
	for _, f := range files {
		r, err := ReadCheckpointReport(f)
		require.NoError(t, err)
		if last == nil || r.Time > last.Time {
			last = r
		}
	}
	assert.Equal(t, 2, last.Cells)
	assert.InDelta(t, 1e-3, last.Time, 1e-9)
	assert.Equal(t, aerosol.Version, last.Version)
	assert.Len(t, last.Sizes, 5)
	assert.Contains(t, last.Variables, "M.4")
	assert.Contains(t, last.Variables, "Y.water")

	var summary bytes.Buffer
	require.NoError(t, CheckpointSummary(&summary, files[0]))
	assert.Contains(t, summary.String(), "variables:")
}

func TestRunRestart(t *testing.T) {
	dir := t.TempDir()
	c, err := ReadCase(strings.NewReader(testCase))
	require.NoError(t, err)
	rc := RunConfig{
		LogFile:         filepath.Join(dir, "run.log"),
		OutputFile:      filepath.Join(dir, "output.ncf"),
		OutputVariables: map[string]string{"N": "N"},
		CheckpointDir:   filepath.Join(dir, "checkpoints"),
		Dt:              1e-4,
		EndTime:         5e-4,
		Limits:          aerosol.DefaultLimits(),
	}
	cmd := versionCmd
	cmd.SetOutput(new(bytes.Buffer))
	defer cmd.SetOutput(nil)
	require.NoError(t, Run(context.Background(), cmd, c, testSectionalConfig(), rc))

	files, err := filepath.Glob(filepath.Join(rc.CheckpointDir, "*.ncf"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	rc.Restart = files[0]
	rc.EndTime = 1e-3
	rc.CheckpointDir = filepath.Join(dir, "checkpoints2")
	require.NoError(t, Run(context.Background(), cmd, c, testSectionalConfig(), rc))
	files, err = filepath.Glob(filepath.Join(rc.CheckpointDir, "*.ncf"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	r, err := ReadCheckpointReport(files[0])
	require.NoError(t, err)
	assert.InDelta(t, 1e-3, r.Time, 1e-9)
}

func TestRunPlausibility(t *testing.T) {
	dir := t.TempDir()
	c, err := ReadCase(strings.NewReader(testCase))
	require.NoError(t, err)
	limits := aerosol.DefaultLimits()
	limits.TMax = 250
	rc := RunConfig{
		LogFile:         filepath.Join(dir, "run.log"),
		OutputFile:      filepath.Join(dir, "output.ncf"),
		OutputVariables: map[string]string{"N": "N"},
		Dt:              1e-4,
		EndTime:         1e-3,
		Limits:          limits,
	}
	cmd := versionCmd
	cmd.SetOutput(new(bytes.Buffer))
	defer cmd.SetOutput(nil)
	err = Run(context.Background(), cmd, c, testSectionalConfig(), rc)
	assert.ErrorIs(t, err, aerosol.ErrPlausibility)
	var v *aerosol.PlausibilityViolation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "T", v.Field)
	assert.FileExists(t, rc.OutputFile)
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	c, err := ReadCase(strings.NewReader(testCase))
	require.NoError(t, err)
	rc := RunConfig{
		LogFile:         filepath.Join(dir, "run.log"),
		OutputFile:      filepath.Join(dir, "output.ncf"),
		OutputVariables: map[string]string{"N": "N"},
		Dt:              1e-4,
		EndTime:         1,
		Limits:          aerosol.DefaultLimits(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cmd := versionCmd
	cmd.SetOutput(new(bytes.Buffer))
	defer cmd.SetOutput(nil)
	require.NoError(t, Run(ctx, cmd, c, testSectionalConfig(), rc))
	assert.FileExists(t, rc.OutputFile)
}
