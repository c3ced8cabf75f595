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

package growth

import (
	"errors"
	"testing"

	"github.com/spatialmodel/aerosol"
	"github.com/spatialmodel/aerosol/science/conductivity"
	"github.com/spatialmodel/aerosol/science/diffusivity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMixture() aerosol.Mixture {
	return aerosol.Mixture{
		Species: []*aerosol.Species{
			{Name: "air", MolarMass: 0.02897},
			{
				Name:           "water",
				MolarMass:      0.018015,
				Condensable:    true,
				LiquidDensity:  1000,
				SurfaceTension: 0.072,
				Hvap:           2.26e6,
				Antoine:        [3]float64{10.196, 1730.63, -39.724},
			},
		},
	}
}

func testCell(y, z float64) *aerosol.Cell {
	c := aerosol.NewCell(0, 1, 2)
	c.T = 300
	c.P = 101325
	c.Mu = 1.8e-5
	c.Rho = 1.2
	c.Y[0] = 1 - y - z
	c.Y[1] = y
	c.Z[1] = z
	return c
}

func testGrowth(t *testing.T, k aerosol.Conductivity) aerosol.Growth {
	t.Helper()
	g, err := New("maxwell", nil, testMixture(), diffusivity.Constant(2.5e-5), k)
	require.NoError(t, err)
	return g
}

func TestNew(t *testing.T) {
	mix := testMixture()
	d := diffusivity.Constant(2.5e-5)
	_, err := New("fast", nil, mix, d, nil)
	assert.Error(t, err)
	_, err = New("maxwell", nil, mix, nil, nil)
	assert.Error(t, err)
	_, err = New("maxwell", aerosol.Params{"alpha": 1.5}, mix, d, nil)
	assert.True(t, errors.Is(err, aerosol.ErrConfiguration), "%v", err)
	_, err = New("maxwell", aerosol.Params{"alpha": 0}, mix, d, nil)
	assert.True(t, errors.Is(err, aerosol.ErrConfiguration), "%v", err)
	g, err := New("maxwell", aerosol.Params{"alpha": 0.5}, mix, d, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, g.(*Maxwell).Alpha)
}

func TestFuchsSutugin(t *testing.T) {
	assert.Equal(t, 1., FuchsSutugin(0, 1))
	assert.True(t, FuchsSutugin(1, 1) < 1)
	assert.True(t, FuchsSutugin(10, 1) < FuchsSutugin(1, 1))
	assert.True(t, FuchsSutugin(1, 0.1) < FuchsSutugin(1, 1))
}

func TestMaxwellCondensation(t *testing.T) {
	g := testGrowth(t, nil)
	dmdt := make([]float64, 2)

	// Supersaturated vapor condenses on a droplet without liquid.
	require.NoError(t, g.Rate(testCell(0.1, 0), 1e-6, dmdt))
	assert.Equal(t, 0., dmdt[0])
	assert.True(t, dmdt[1] > 0)
	small := dmdt[1]

	// Larger droplets grow faster in absolute terms.
	require.NoError(t, g.Rate(testCell(0.1, 0), 1e-5, dmdt))
	assert.True(t, dmdt[1] > small)

	// Latent heat release slows condensation.
	gk := testGrowth(t, conductivity.Constant(0.0257))
	require.NoError(t, gk.Rate(testCell(0.1, 0), 1e-6, dmdt))
	assert.True(t, dmdt[1] > 0)
	assert.True(t, dmdt[1] < small)
}

func TestMaxwellEvaporation(t *testing.T) {
	g := testGrowth(t, nil)
	dmdt := make([]float64, 2)
	require.NoError(t, g.Rate(testCell(0, 0.01), 1e-6, dmdt))
	assert.True(t, dmdt[1] < 0)

	// Because of the Kelvin effect, small droplets evaporate in vapor on
	// which large droplets grow.
	c := testCell(0.03, 0.01)
	require.NoError(t, g.Rate(c, 1e-5, dmdt))
	assert.True(t, dmdt[1] > 0)
	require.NoError(t, g.Rate(c, 1e-9, dmdt))
	assert.True(t, dmdt[1] < 0)
}

func TestMaxwellInvalid(t *testing.T) {
	g := testGrowth(t, nil)
	dmdt := []float64{1, 1}
	require.NoError(t, g.Rate(testCell(0.1, 0), 0, dmdt))
	assert.Equal(t, []float64{0, 0}, dmdt)

	c := testCell(0.1, 0)
	c.T = 0
	require.NoError(t, g.Rate(c, 1e-6, dmdt))
	assert.Equal(t, []float64{0, 0}, dmdt)

	assert.Error(t, g.Rate(testCell(0.1, 0), 1e-6, make([]float64, 3)))
}
