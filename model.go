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

// Package aerosol is a sectional model of the droplet size distribution of
// an aerosol. Droplet number in each size section changes by nucleation,
// condensation and evaporation, and coalescence; droplets that move off
// the section grid are redistributed onto neighboring sections in a way
// that conserves droplet number and mass (and optionally higher moments).
package aerosol

import (
	"github.com/sirupsen/logrus"
)

// Version gives the version number.
const Version = "0.3.0"

// Model holds the current state of the simulation.
type Model struct {
	// InitFuncs are functions to be called in the given order
	// at the beginning of the simulation.
	InitFuncs []DomainManipulator

	// RunFuncs are functions to be called in the given order repeatedly
	// until "Done" is true. Therefore, at least one of the functions
	// should set "Done" to true, or the simulation will run forever.
	RunFuncs []DomainManipulator

	// CleanupFuncs are functions to be called in the given order
	// after the simulation has completed.
	CleanupFuncs []DomainManipulator

	cells []*Cell

	// Faces connect cells to each other and to the boundaries.
	Faces []*Face

	// Mixture holds the species tracked in every cell.
	Mixture Mixture

	Dt   float64 // current time step [s]
	Time float64 // simulated time [s]

	// Iteration is the number of completed calls to RunFuncs.
	Iteration int

	// Done specifies whether the simulation is finished.
	Done bool

	// Log receives status messages. If nil, the logrus standard logger
	// is used.
	Log logrus.FieldLogger
}

// DomainManipulator is a class of functions that operate on the entire model
// domain.
type DomainManipulator func(m *Model) error

// CellManipulator is a class of functions that operate on a single cell,
// using the provided time step Δt [s].
type CellManipulator func(c *Cell, Δt float64) error

// Init initializes the simulation by running m.InitFuncs.
func (m *Model) Init() error {
	for _, f := range m.InitFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// Run carries out the simulation by running m.RunFuncs until m.Done is true.
func (m *Model) Run() error {
	for !m.Done {
		for _, f := range m.RunFuncs {
			if err := f(m); err != nil {
				return err
			}
		}
		m.Iteration++
	}
	return nil
}

// Cleanup finalizes the simulation by running m.CleanupFuncs.
func (m *Model) Cleanup() error {
	for _, f := range m.CleanupFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// Cells returns the cells in the model domain.
func (m *Model) Cells() []*Cell { return m.cells }

// AddCells adds cells to the model domain, renumbering them in order.
func (m *Model) AddCells(cells ...*Cell) {
	for _, c := range cells {
		c.Index = len(m.cells)
		m.cells = append(m.cells, c)
	}
}

func (m *Model) log() logrus.FieldLogger {
	if m.Log == nil {
		return logrus.StandardLogger()
	}
	return m.Log
}

// AdvanceTime adds the current time step to the simulated time. It should
// follow the RunFuncs that use the current time step.
func AdvanceTime() DomainManipulator {
	return func(m *Model) error {
		m.Time += m.Dt
		return nil
	}
}

// EndTime returns a function that sets m.Done once the simulated time
// reaches end [s], shortening the next time step so that the simulation
// ends exactly at end. It should be the last of the RunFuncs.
func EndTime(end float64) DomainManipulator {
	const small = 1e-9 // s
	return func(m *Model) error {
		if m.Time >= end-small {
			m.Done = true
			return nil
		}
		if m.Time+m.Dt > end {
			m.Dt = end - m.Time
		}
		return nil
	}
}

// NumIterations returns a function that sets m.Done after n iterations.
func NumIterations(n int) DomainManipulator {
	return func(m *Model) error {
		if m.Iteration+1 >= n {
			m.Done = true
		}
		return nil
	}
}
