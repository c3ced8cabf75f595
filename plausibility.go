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

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/aerosol/internal/metrics"
	"gopkg.in/gcfg.v1"
)

// Limits holds the plausible range of the cell fields.
type Limits struct {
	RhoMin, RhoMax float64 // kg/m³
	TMin, TMax     float64 // K
	YMin, YMax     float64 // vapor mass fraction
	ZMin, ZMax     float64 // liquid mass fraction
}

// DefaultLimits returns limits that only reject non-physical values.
func DefaultLimits() Limits {
	return Limits{
		RhoMin: 0, RhoMax: math.Inf(1),
		TMin: 0, TMax: math.Inf(1),
		YMin: 0, YMax: 1,
		ZMin: 0, ZMax: 1,
	}
}

type limitsFile struct {
	Limits Limits
}

// LoadPlausibilityLimits reads a limits file with a [limits] section, for
// example:
//
//	[limits]
//	rhoMin = 0.1
//	TMax = 2000
//
// Limits that are not in the file keep their default values.
func LoadPlausibilityLimits(filename string) (Limits, error) {
	f := limitsFile{Limits: DefaultLimits()}
	if err := gcfg.ReadFileInto(&f, filename); err != nil {
		return Limits{}, fmt.Errorf("aerosol: reading plausibility limits: %w", err)
	}
	return f.Limits, f.Limits.validate()
}

// ParsePlausibilityLimits is LoadPlausibilityLimits for a string.
func ParsePlausibilityLimits(s string) (Limits, error) {
	f := limitsFile{Limits: DefaultLimits()}
	if err := gcfg.ReadStringInto(&f, s); err != nil {
		return Limits{}, fmt.Errorf("aerosol: reading plausibility limits: %w", err)
	}
	return f.Limits, f.Limits.validate()
}

func (l Limits) validate() error {
	for _, p := range []struct {
		name     string
		min, max float64
	}{{"rho", l.RhoMin, l.RhoMax}, {"T", l.TMin, l.TMax}, {"Y", l.YMin, l.YMax}, {"Z", l.ZMin, l.ZMax}} {
		if p.min > p.max {
			return configErr(p.name+"Min", p.min, "must not exceed %sMax (%g)", p.name, p.max)
		}
	}
	return nil
}

// Check returns the first field of c that is outside of the limits, or nil.
func (l Limits) Check(c *Cell) *PlausibilityViolation {
	out := func(field string, v, min, max float64) *PlausibilityViolation {
		if v >= min && v <= max {
			return nil
		}
		return &PlausibilityViolation{Field: field, Cell: c.Index, Value: v, Min: min, Max: max}
	}
	if v := out("rho", c.Rho, l.RhoMin, l.RhoMax); v != nil {
		return v
	}
	if v := out("T", c.T, l.TMin, l.TMax); v != nil {
		return v
	}
	for j, y := range c.Y {
		if v := out(fmt.Sprintf("Y.%d", j), y, l.YMin, l.YMax); v != nil {
			return v
		}
	}
	for j, z := range c.Z {
		if v := out(fmt.Sprintf("Z.%d", j), z, l.ZMin, l.ZMax); v != nil {
			return v
		}
	}
	return nil
}

// PlausibilityCheck returns a function that checks every cell against l.
// When a field is out of range, the state is saved with checkpoint (if it is
// not nil) and a *PlausibilityViolation is returned, which stops the run.
func PlausibilityCheck(l Limits, checkpoint func(*Model) (string, error), mm *metrics.Metrics) DomainManipulator {
	return func(m *Model) error {
		for _, c := range m.cells {
			v := l.Check(c)
			if v == nil {
				continue
			}
			v.Time = m.Time
			if mm != nil {
				mm.PlausibilityViolations.Inc()
			}
			if checkpoint != nil {
				f, err := checkpoint(m)
				if err != nil {
					m.log().WithError(err).Error("aerosol: writing checkpoint after plausibility violation")
				}
				v.Checkpoint = f
			}
			m.log().WithFields(logrus.Fields{
				"field": v.Field,
				"cell":  v.Cell,
				"value": v.Value,
				"time":  v.Time,
			}).Error("aerosol: implausible value")
			return v
		}
		return nil
	}
}
