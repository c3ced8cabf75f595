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
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/aerosol/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Calculations returns a function that concurrently runs a series of
// calculations on all of the model cells. Cells are independent of each
// other, so each worker processes its own stride of cells. The first error
// encountered is returned.
func Calculations(calculators ...CellManipulator) DomainManipulator {
	nprocs := runtime.GOMAXPROCS(0) // number of processors

	return func(m *Model) error {
		cells := m.cells
		var g errgroup.Group
		for pp := 0; pp < nprocs; pp++ {
			pp := pp
			g.Go(func() error {
				for ii := pp; ii < len(cells); ii += nprocs {
					c := cells[ii]
					c.Lock() // Lock the cell to avoid race conditions
					for _, f := range calculators {
						if err := f(c, m.Dt); err != nil {
							c.Unlock()
							return err
						}
					}
					c.Unlock() // Unlock the cell: we're done editing it
				}
				return nil
			})
		}
		return g.Wait()
	}
}

// RunPeriodically runs f periodically during the model run,
// every "period" seconds of simulated time.
func RunPeriodically(period float64, f DomainManipulator) DomainManipulator {
	nextRun := 0.
	return func(m *Model) error {
		if m.Time >= nextRun {
			if err := f(m); err != nil {
				return err
			}
			nextRun += period
			for nextRun <= m.Time {
				nextRun += period
			}
		}
		return nil
	}
}

// Timed wraps f so that its wall time is recorded under the given step name.
func Timed(step string, mm *metrics.Metrics, f DomainManipulator) DomainManipulator {
	return func(m *Model) error {
		start := time.Now()
		err := f(m)
		mm.ObserveStep(step, start)
		return err
	}
}

// Log returns a function that logs simulation status messages.
// The total droplet number and mass are reported using grid g.
func Log(g func() *SizeGrid, mm *metrics.Metrics) DomainManipulator {
	startTime := time.Now()
	timeStepTime := time.Now()

	return func(m *Model) error {
		var number, mass, defect float64
		grid := g()
		for _, c := range m.cells {
			cellMass := c.Rho * c.Volume
			for i, v := range c.M {
				number += v * cellMass
				mass += v * grid.Mass(i) * cellMass
			}
			defect += c.Defect * cellMass
		}
		m.log().WithFields(logrus.Fields{
			"iteration":  m.Iteration,
			"walltime":   time.Since(startTime).Round(time.Millisecond).String(),
			"Δwalltime":  time.Since(timeStepTime).Round(time.Microsecond).String(),
			"Δt":         m.Dt,
			"time":       m.Time,
			"droplets":   number,
			"liquidMass": mass,
			"defect":     defect,
		}).Info("aerosol: time step complete")
		timeStepTime = time.Now()

		if mm != nil {
			mm.Iterations.Inc()
			mm.SimulatedTime.Set(m.Time)
			mm.TimeStep.Set(m.Dt)
			mm.DropletNumber.Set(number)
			mm.DomainDefect.Set(defect)
		}
		return nil
	}
}
