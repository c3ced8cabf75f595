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

// Package metrics holds the Prometheus collectors that report the
// progress of a simulation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds simulation progress collectors.
type Metrics struct {
	Iterations              prometheus.Counter
	SimulatedTime           prometheus.Gauge
	TimeStep                prometheus.Gauge
	DomainDefect            prometheus.Gauge
	DropletNumber           prometheus.Gauge
	PlausibilityViolations  prometheus.Counter
	ConsistencyCorrections  prometheus.Counter
	GridCorrections         prometheus.Counter
	StepDuration            *prometheus.HistogramVec
	CheckpointWriteDuration prometheus.Histogram
}

// New creates a new Metrics instance with all collectors registered to reg.
// If reg is nil, a new registry is used so that several simulations can run
// in the same process.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		Iterations: f.NewCounter(prometheus.CounterOpts{
			Name: "aerosol_iterations_total",
			Help: "Total number of completed time steps",
		}),
		SimulatedTime: f.NewGauge(prometheus.GaugeOpts{
			Name: "aerosol_simulated_time_seconds",
			Help: "Simulated time",
		}),
		TimeStep: f.NewGauge(prometheus.GaugeOpts{
			Name: "aerosol_time_step_seconds",
			Help: "Current time step",
		}),
		DomainDefect: f.NewGauge(prometheus.GaugeOpts{
			Name: "aerosol_domain_defect_kilograms",
			Help: "Accumulated droplet mass that grew beyond the largest section",
		}),
		DropletNumber: f.NewGauge(prometheus.GaugeOpts{
			Name: "aerosol_droplet_number",
			Help: "Total number of droplets in the domain",
		}),
		PlausibilityViolations: f.NewCounter(prometheus.CounterOpts{
			Name: "aerosol_plausibility_violations_total",
			Help: "Total number of plausibility limit violations",
		}),
		ConsistencyCorrections: f.NewCounter(prometheus.CounterOpts{
			Name: "aerosol_consistency_corrections_total",
			Help: "Total number of field values clipped to physical bounds",
		}),
		GridCorrections: f.NewCounter(prometheus.CounterOpts{
			Name: "aerosol_grid_corrections_total",
			Help: "Total number of size grid extensions",
		}),
		StepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aerosol_step_duration_seconds",
			Help:    "Wall time of each fractional step",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"step"}),
		CheckpointWriteDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aerosol_checkpoint_write_duration_seconds",
			Help:    "Duration of checkpoint writes",
			Buckets: []float64{0.001, 0.01, 0.1, 1, 10, 100},
		}),
	}
}

// ObserveStep records the duration of the named step.
// Call with time.Now() at the start of the step.
func (m *Metrics) ObserveStep(step string, start time.Time) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

// ObserveCheckpoint records the duration of a checkpoint write.
func (m *Metrics) ObserveCheckpoint(start time.Time) {
	if m == nil {
		return
	}
	m.CheckpointWriteDuration.Observe(time.Since(start).Seconds())
}
