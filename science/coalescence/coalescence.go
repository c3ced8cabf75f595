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

// Package coalescence provides kernels for the rate at which droplets
// collide and merge.
package coalescence

import (
	"fmt"
	"sort"

	"github.com/spatialmodel/aerosol"
)

// New returns the coalescence kernel with the given name. Valid names are
// "constant" and "leeChen".
func New(name string, p aerosol.Params, mix aerosol.Mixture) (aerosol.CoalescenceKernel, error) {
	allocator, ok := allocators[name]
	if !ok {
		return nil, fmt.Errorf("coalescence: invalid kernel %q; valid options are %v", name, Names())
	}
	return allocator(p, mix)
}

var allocators = map[string]func(aerosol.Params, aerosol.Mixture) (aerosol.CoalescenceKernel, error){
	"constant": newConstant,
	"leeChen":  newLeeChen,
}

// Names returns the names of the available kernels.
func Names() []string {
	names := make([]string, 0, len(allocators))
	for n := range allocators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Constant is a size-independent kernel.
type Constant float64

func newConstant(p aerosol.Params, _ aerosol.Mixture) (aerosol.CoalescenceKernel, error) {
	b, err := p.Float("beta", 0)
	if err != nil {
		return nil, err
	}
	if b < 0 {
		return nil, &aerosol.ConfigurationError{Parameter: "beta", Value: b, Reason: "must not be negative"}
	}
	return Constant(b), nil
}

// Rate implements aerosol.CoalescenceKernel.
func (k Constant) Rate(_, _ float64, _ *aerosol.Cell) float64 { return float64(k) }

// LeeChen is the Brownian coagulation kernel with slip correction and a
// correction factor W for the width of the size distribution.
type LeeChen struct {
	W float64

	// carrier gas molar mass [kg/mol] for the mean free path
	molarMass float64
}

func newLeeChen(p aerosol.Params, mix aerosol.Mixture) (aerosol.CoalescenceKernel, error) {
	w, err := p.Positive("W", 1)
	if err != nil {
		return nil, err
	}
	return &LeeChen{W: w, molarMass: mix.Species[mix.Carrier].MolarMass}, nil
}

// Rate implements aerosol.CoalescenceKernel.
func (k *LeeChen) Rate(di, dj float64, c *aerosol.Cell) float64 {
	if di <= 0 || dj <= 0 || c.Mu <= 0 {
		return 0
	}
	lambda := aerosol.MeanFreePath(c, k.molarMass)
	ci := aerosol.Cunningham(di, lambda)
	cj := aerosol.Cunningham(dj, lambda)
	return k.W * 2 * aerosol.KBoltzmann * c.T / (3 * c.Mu) * (ci/di + cj/dj) * (di + dj)
}
