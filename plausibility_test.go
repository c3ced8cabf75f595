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
	"os"
	"path/filepath"
	"testing"

	"github.com/spatialmodel/aerosol/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlausibilityLimits(t *testing.T) {
	l, err := ParsePlausibilityLimits("[limits]\nrhoMin = 0.1\nTMax = 2000\n")
	require.NoError(t, err)
	want := DefaultLimits()
	want.RhoMin = 0.1
	want.TMax = 2000
	assert.Equal(t, want, l)

	_, err = ParsePlausibilityLimits("[limits]\nTMin = 300\nTMax = 200\n")
	assert.True(t, errors.Is(err, ErrConfiguration), "%v", err)

	_, err = ParsePlausibilityLimits("[limits]\nnotALimit = 1\n")
	assert.Error(t, err)
}

func TestLoadPlausibilityLimits(t *testing.T) {
	f := filepath.Join(t.TempDir(), "limits.gcfg")
	require.NoError(t, os.WriteFile(f, []byte("[limits]\nzMax = 0.5\n"), 0644))
	l, err := LoadPlausibilityLimits(f)
	require.NoError(t, err)
	assert.Equal(t, 0.5, l.ZMax)
	assert.True(t, math.IsInf(l.TMax, 1))

	_, err = LoadPlausibilityLimits(filepath.Join(t.TempDir(), "missing.gcfg"))
	assert.Error(t, err)
}

func TestLimitsCheck(t *testing.T) {
	s := testSectional(t, testUnitConfig())
	c := testCell(s)
	c.Index = 3
	l := DefaultLimits()
	assert.Nil(t, l.Check(c))

	l.TMax = 250
	v := l.Check(c)
	require.NotNil(t, v)
	assert.Equal(t, "T", v.Field)
	assert.Equal(t, 3, v.Cell)
	assert.Equal(t, 300., v.Value)

	c.Z[1] = -0.1
	v = DefaultLimits().Check(c)
	require.NotNil(t, v)
	assert.Equal(t, "Z.1", v.Field)
}

func TestPlausibilityCheck(t *testing.T) {
	s := testSectional(t, testUnitConfig())
	m := &Model{Time: 2}
	m.AddCells(testCell(s), testCell(s))
	m.Cells()[1].Rho = -1

	mm := metrics.New(nil)
	var saved int
	checkpoint := func(*Model) (string, error) {
		saved++
		return "state.ncf", nil
	}
	err := PlausibilityCheck(DefaultLimits(), checkpoint, mm)(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPlausibility))

	var v *PlausibilityViolation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "rho", v.Field)
	assert.Equal(t, 1, v.Cell)
	assert.Equal(t, 2., v.Time)
	assert.Equal(t, "state.ncf", v.Checkpoint)
	assert.Equal(t, 1, saved)
	assert.Contains(t, err.Error(), "state written to state.ncf")

	m.Cells()[1].Rho = 1
	assert.NoError(t, PlausibilityCheck(DefaultLimits(), nil, nil)(m))
}
