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
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/aerosol/internal/metrics"
)

// DefectPolicy specifies what happens to droplets that grow beyond the
// largest section.
type DefectPolicy int

const (
	// Discard removes the droplets from the size distribution and adds
	// their mass to the domain defect.
	Discard DefectPolicy = iota
	// LastSection adds the droplets to the largest section, preserving
	// their mass but not their number.
	LastSection
)

// ParseDefectPolicy returns the defect policy with the given name.
func ParseDefectPolicy(name string) (DefectPolicy, error) {
	switch name {
	case "discard", "":
		return Discard, nil
	case "lastSection":
		return LastSection, nil
	}
	return 0, configErr("defectPolicy", name, "valid options are discard and lastSection")
}

func (p DefectPolicy) String() string {
	if p == LastSection {
		return "lastSection"
	}
	return "discard"
}

// SectionalConfig holds the parameters of the sectional model.
type SectionalConfig struct {
	Grid SizeGridConfig

	DistMethod DistMethod
	// Phi is the largest share of four-moment redistribution used by the
	// hybrid method.
	Phi float64

	DefectPolicy DefectPolicy
	// DefectWarnThreshold is the domain defect, relative to the total
	// droplet mass, above which a warning is logged.
	DefectWarnThreshold float64

	DoCond, DoNuc, DoCoa, DoDrift bool
	DoCorrSizeDist, DoMonitors    bool

	// MaxCFL is the largest fraction of a section width that droplets may
	// grow or shrink in one condensation substep.
	MaxCFL float64
	// MaxCoaFraction is the largest fraction of the droplets in a section
	// that may coalesce in one coalescence substep.
	MaxCoaFraction float64
	// MaxSubsteps limits the number of substeps of each process.
	MaxSubsteps int

	MassConservationTolerance  float64
	MassConservationRelaxation float64

	// CorrectThreshold is the fraction of droplet mass in the largest section
	// above which the grid is extended.
	CorrectThreshold float64
}

// DefaultSectionalConfig returns a configuration with all processes on.
func DefaultSectionalConfig() SectionalConfig {
	return SectionalConfig{
		Grid: SizeGridConfig{
			P:              40,
			Distribution:   Logarithmic,
			Position:       Center,
			Dimension:      DiameterDimension,
			YMin:           1e-9,
			YMax:           1e-5,
			Q:              1,
			DropletDensity: 1000,
		},
		DistMethod:                 TwoMoment,
		Phi:                        1,
		DefectWarnThreshold:        1e-3,
		DoCond:                     true,
		DoNuc:                      true,
		DoCoa:                      true,
		DoDrift:                    false,
		DoMonitors:                 true,
		MaxCFL:                     0.5,
		MaxCoaFraction:             0.5,
		MaxSubsteps:                100,
		MassConservationTolerance:  1e-8,
		MassConservationRelaxation: 1,
		CorrectThreshold:           0.05,
	}
}

// Sectional is the sectional aerosol model. Closures are optional; a
// process that is switched on without its closure returns
// ErrStrategyNotConfigured.
type Sectional struct {
	Config  SectionalConfig
	Mixture Mixture

	Grid *SizeGrid
	Coa  *Connectivity

	Nucleation Nucleation
	Growth     Growth
	Kernel     CoalescenceKernel
	Drift      Drift
	Species    SpeciesSolver

	Log     logrus.FieldLogger
	Metrics *metrics.Metrics

	mu           sync.Mutex
	domainDefect float64 // kg
}

// NewSectional creates a sectional model and its size grid.
func NewSectional(cfg SectionalConfig, mix Mixture) (*Sectional, error) {
	if err := mix.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxCFL <= 0 {
		return nil, configErr("maxCFL", cfg.MaxCFL, "must be positive")
	}
	if cfg.MaxCoaFraction <= 0 || cfg.MaxCoaFraction >= 1 {
		return nil, configErr("maxCoaFraction", cfg.MaxCoaFraction, "must be between 0 and 1")
	}
	if cfg.MaxSubsteps < 1 {
		return nil, configErr("maxSubsteps", cfg.MaxSubsteps, "must be at least 1")
	}
	if cfg.Phi < 0 || cfg.Phi > 1 {
		return nil, configErr("phi", cfg.Phi, "must be between 0 and 1")
	}
	g, err := NewSizeGrid(cfg.Grid)
	if err != nil {
		return nil, err
	}
	cfg.Grid = g.Config()
	return &Sectional{
		Config:  cfg,
		Mixture: mix,
		Grid:    g,
		Species: LocalSpecies{},
		Log:     logrus.StandardLogger(),
	}, nil
}

// NewCell returns a cell sized for s.
func (s *Sectional) NewCell() *Cell {
	return NewCell(0, s.Grid.P(), s.Mixture.Len())
}

// Redistributor returns the redistributor for the current grid.
func (s *Sectional) Redistributor() Redistributor {
	return Redistributor{Grid: s.Grid, Method: s.Config.DistMethod, Phi: s.Config.Phi}
}

// PrepareCoa computes the coalescence connectivity table if it is not
// up to date. It must not run concurrently with the cell loop.
func (s *Sectional) PrepareCoa() DomainManipulator {
	return func(m *Model) error {
		if !s.Coa.Prepared() {
			s.Coa = PrepareCoa(s.Grid)
			s.Log.WithField("sections", s.Grid.P()).Debug("aerosol: prepared coalescence connectivity")
		}
		return nil
	}
}

// Update returns a function that advances the size distribution in every
// cell by one time step: the internal fractional step (nucleation and
// condensation), the species update, and then the external fractional step
// (coalescence), followed by consistency checks and diagnostics.
func (s *Sectional) Update() DomainManipulator {
	steps := []DomainManipulator{
		s.PrepareCoa(),
		Timed("internal", s.Metrics, Calculations(s.FractionalStepInternal)),
		Timed("species", s.Metrics, Calculations(s.solveSpecies)),
		Timed("external", s.Metrics, Calculations(s.FractionalStepExternal)),
		Calculations(s.consistency, s.UpdateDropletVelocities, s.UpdateDiagnostics),
		s.UpdateDropletFluxes(),
		s.ReportDefect(),
	}
	if s.Config.DoCorrSizeDist {
		steps = append(steps, s.CorrectSizeDistribution())
	}
	return func(m *Model) error {
		for _, f := range steps {
			if err := f(m); err != nil {
				return err
			}
		}
		return nil
	}
}

func (s *Sectional) solveSpecies(c *Cell, Δt float64) error {
	if s.Species == nil {
		return notConfigured("species solver")
	}
	return s.Species.Solve(c, Δt)
}

func (s *Sectional) consistency(c *Cell, Δt float64) error {
	n := CheckConsistency(c)
	Rescale(c, s.Mixture.Carrier, s.Config.MassConservationTolerance, s.Config.MassConservationRelaxation)
	if n > 0 && s.Metrics != nil {
		s.Metrics.ConsistencyCorrections.Add(float64(n))
	}
	return nil
}

// overflow handles G droplets of mass d [kg] that are larger than the
// largest section according to the defect policy.
func (s *Sectional) overflow(c *Cell, M []float64, d, G float64) {
	if G == 0 {
		return
	}
	last := s.Grid.P() - 1
	if s.Config.DefectPolicy == LastSection {
		M[last] += G * d / s.Grid.Mass(last)
		return
	}
	c.Defect += G * d
	c.stepDefect += G * d
}

// underflow adds G droplets of mass d [kg], smaller than the smallest
// section, to the smallest section while preserving their mass.
func (s *Sectional) underflow(M []float64, d, G float64) {
	if d <= 0 || G == 0 {
		return
	}
	M[0] += G * d / s.Grid.Mass(0)
}

// place redistributes G droplets of mass d onto M, handling droplets that
// are off the grid.
func (s *Sectional) place(c *Cell, r Redistributor, M []float64, d, G float64) {
	sp, ok := r.Split(d, G, M)
	if ok {
		sp.AddTo(M)
		return
	}
	if d < s.Grid.Mass(0) {
		s.underflow(M, d, G)
	} else {
		s.overflow(c, M, d, G)
	}
}

// DomainDefect returns the total droplet mass [kg] that has been discarded
// because it grew beyond the largest section.
func (s *Sectional) DomainDefect() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.domainDefect
}

// ReportDefect returns a function that adds up the domain defect of the
// last time step and logs a warning if the accumulated defect is large
// compared to the droplet mass in the domain.
func (s *Sectional) ReportDefect() DomainManipulator {
	return func(m *Model) error {
		var step, mass float64
		for _, c := range m.cells {
			cellMass := c.Rho * c.Volume
			step += c.stepDefect * cellMass
			c.stepDefect = 0
			for i, v := range c.M {
				mass += v * s.Grid.Mass(i) * cellMass
			}
		}
		s.mu.Lock()
		s.domainDefect += step
		total := s.domainDefect
		s.mu.Unlock()
		if s.Metrics != nil {
			s.Metrics.DomainDefect.Set(total)
		}
		if step > 0 && total > s.Config.DefectWarnThreshold*mass {
			s.Log.WithFields(logrus.Fields{
				"stepDefect":  step,
				"totalDefect": total,
				"liquidMass":  mass,
			}).Warn("aerosol: droplets are growing beyond the largest section; consider increasing yMax")
		}
		return nil
	}
}

// dropletDensity returns the density [kg/m³] of the droplets in c,
// assuming all droplets share the composition of the liquid phase.
func (s *Sectional) dropletDensity(c *Cell) float64 {
	return s.mixtureDensity(c.Z)
}

// mixtureDensity returns the density of a liquid with the given species
// mass fractions or mass amounts.
func (s *Sectional) mixtureDensity(w []float64) float64 {
	var tot, vol float64
	for j, sp := range s.Mixture.Species {
		if !sp.Condensable || w[j] <= 0 {
			continue
		}
		tot += w[j]
		vol += w[j] / sp.LiquidDensity
	}
	if tot <= 0 || vol <= 0 {
		if s.Config.Grid.DropletDensity > 0 {
			return s.Config.Grid.DropletDensity
		}
		return 1000
	}
	return tot / vol
}

// sectionDiameters returns the diameter of droplets in each section of c.
func (s *Sectional) sectionDiameters(c *Cell, d []float64) []float64 {
	rho := s.dropletDensity(c)
	if cap(d) < s.Grid.P() {
		d = make([]float64, s.Grid.P())
	}
	d = d[:s.Grid.P()]
	for i := range d {
		d[i] = Diameter(s.Grid.Mass(i), rho)
	}
	return d
}

func substeps(co, max float64, limit int) int {
	if co <= 0 || math.IsNaN(co) {
		return 1
	}
	n := int(math.Ceil(co / max))
	if n < 1 {
		n = 1
	}
	if n > limit {
		n = limit
	}
	return n
}

func (s *Sectional) String() string {
	return fmt.Sprintf("sectional model: %d %s sections (%g–%g), %s redistribution",
		s.Grid.P(), s.Grid.cfg.Distribution, s.Grid.x[0], s.Grid.x[s.Grid.P()-1], s.Config.DistMethod)
}
