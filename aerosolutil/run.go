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
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/aerosol"
	"github.com/spatialmodel/aerosol/internal/metrics"
	"github.com/spf13/cobra"
)

// RunConfig holds the run control settings of a simulation.
type RunConfig struct {
	// LogFile is the path to the desired logfile location.
	LogFile string

	// OutputFile is the path to the netCDF output file, and OutputVariables
	// maps output variable names to expressions of model variables.
	OutputFile      string
	OutputVariables map[string]string

	// CheckpointDir is where checkpoints are written, every
	// CheckpointInterval seconds of simulated time if it is positive and
	// at the end of the run. No checkpoints are written if it is blank.
	CheckpointDir      string
	CheckpointInterval float64

	// Restart is an optional checkpoint file to start from.
	Restart string

	Dt, EndTime    float64 // s
	AdjustTimeStep bool
	MaxCo          float64
	MaxDeltaT      float64 // s

	// StartAveraging is the simulated time [s] at which the time averaging
	// of the cell diagnostics begins.
	StartAveraging float64

	Limits aerosol.Limits

	// MetricsAddress is where Prometheus metrics are served, if not blank.
	MetricsAddress string
}

// Run runs the simulation described by c with the sectional model
// configuration sc. Log messages are written to the output of cmd and to
// rc.LogFile. If ctx is cancelled, the simulation stops at the end of the
// current time step and the final checkpoint and output are written.
func Run(ctx context.Context, cmd *cobra.Command, c *Case, sc aerosol.SectionalConfig, rc RunConfig) error {
	startTime := time.Now()

	logfile, err := os.Create(rc.LogFile)
	if err != nil {
		return fmt.Errorf("aerosol: problem creating log file: %v", err)
	}
	defer logfile.Close()
	log := logrus.New()
	log.Out = io.MultiWriter(cmd.OutOrStdout(), logfile)
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339Nano}

	reg := prometheus.NewRegistry()
	mm := metrics.New(reg)
	if rc.MetricsAddress != "" {
		srv := &http.Server{Addr: rc.MetricsAddress, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("aerosol: serving metrics")
			}
		}()
		defer srv.Close()
		log.WithField("address", rc.MetricsAddress).Info("aerosol: serving metrics")
	}

	m, s, err := Setup(c, sc, log, mm)
	if err != nil {
		return err
	}
	m.Dt = rc.Dt
	log.Info(s.String())

	if rc.Restart != "" {
		f, err := os.Open(rc.Restart)
		if err != nil {
			return fmt.Errorf("aerosol: opening restart file: %w", err)
		}
		t, err := s.ReadCheckpoint(f, m, c.Initial)
		f.Close()
		if err != nil {
			return err
		}
		m.Time = t
		log.WithFields(logrus.Fields{"file": rc.Restart, "time": t}).Info("aerosol: restarting from checkpoint")
	}

	o, err := aerosol.NewOutputter(rc.OutputFile, rc.OutputVariables, nil)
	if err != nil {
		return err
	}

	var checkpoint func(*aerosol.Model) (string, error)
	if rc.CheckpointDir != "" {
		checkpoint = func(m *aerosol.Model) (string, error) {
			return s.WriteCheckpoint(ctx, rc.CheckpointDir, m)
		}
	}

	m.InitFuncs = []aerosol.DomainManipulator{
		s.PrepareCoa(),
		aerosol.Calculations(s.UpdateDropletVelocities, s.UpdateDiagnostics),
		s.UpdateDropletFluxes(),
	}
	m.RunFuncs = RunFuncs(ctx, s, rc, checkpoint, mm)
	if checkpoint != nil {
		m.CleanupFuncs = append(m.CleanupFuncs, func(m *aerosol.Model) error {
			_, err := checkpoint(m)
			return err
		})
	}
	m.CleanupFuncs = append(m.CleanupFuncs, s.Output(o))

	if err = m.Init(); err != nil {
		return err
	}
	runErr := m.Run()
	if errors.Is(runErr, context.Canceled) {
		log.Warn("aerosol: simulation interrupted")
		runErr = nil
	}
	if runErr != nil && !errors.Is(runErr, aerosol.ErrPlausibility) {
		return runErr
	}
	if err = m.Cleanup(); err != nil {
		return err
	}
	log.WithField("walltime", time.Since(startTime).Round(time.Millisecond).String()).Info("aerosol: simulation complete")
	return runErr
}

// Setup creates the sectional model and the model domain described by c.
func Setup(c *Case, sc aerosol.SectionalConfig, log logrus.FieldLogger, mm *metrics.Metrics) (*aerosol.Model, *aerosol.Sectional, error) {
	mix, err := c.Mixture()
	if err != nil {
		return nil, nil, err
	}
	s, err := aerosol.NewSectional(sc, mix)
	if err != nil {
		return nil, nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	s.Log = log
	s.Metrics = mm
	if err := c.SetClosures(s); err != nil {
		return nil, nil, err
	}
	m := &aerosol.Model{Log: log}
	if err := c.Build(s, m); err != nil {
		return nil, nil, err
	}
	return m, s, nil
}

// RunFuncs returns the functions that are run in each time step.
// checkpoint may be nil.
func RunFuncs(ctx context.Context, s *aerosol.Sectional, rc RunConfig, checkpoint func(*aerosol.Model) (string, error), mm *metrics.Metrics) []aerosol.DomainManipulator {
	f := []aerosol.DomainManipulator{
		func(*aerosol.Model) error { return ctx.Err() },
		s.Update(),
		aerosol.TimeAverage(rc.StartAveraging),
		aerosol.PlausibilityCheck(rc.Limits, checkpoint, mm),
		aerosol.Log(func() *aerosol.SizeGrid { return s.Grid }, mm),
		aerosol.AdvanceTime(),
	}
	if checkpoint != nil && rc.CheckpointInterval > 0 {
		f = append(f, aerosol.RunPeriodically(rc.CheckpointInterval, func(m *aerosol.Model) error {
			_, err := checkpoint(m)
			return err
		}))
	}
	if rc.AdjustTimeStep {
		f = append(f, aerosol.SetDeltaT(rc.MaxCo, rc.MaxDeltaT))
	}
	return append(f, aerosol.EndTime(rc.EndTime))
}
