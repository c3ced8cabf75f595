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
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/aerosol"
	"gopkg.in/yaml.v3"
)

// GridReport describes a size grid.
type GridReport struct {
	Sections     int       `yaml:"sections"`
	Distribution string    `yaml:"distribution"`
	Position     string    `yaml:"position"`
	Dimension    string    `yaml:"dimension"`
	Boundaries   []float64 `yaml:"boundaries"`
	Sizes        []float64 `yaml:"sizes"`
	Masses       []float64 `yaml:"masses"`
}

// NewGridReport creates the grid specified by cfg and describes it.
func NewGridReport(cfg aerosol.SizeGridConfig) (*GridReport, error) {
	g, err := aerosol.NewSizeGrid(cfg)
	if err != nil {
		return nil, err
	}
	cfg = g.Config()
	r := &GridReport{
		Sections:     g.P(),
		Distribution: cfg.Distribution.String(),
		Position:     cfg.Position.String(),
		Dimension:    cfg.Dimension.Name(),
		Boundaries:   g.Ys(),
		Sizes:        g.Xs(),
		Masses:       make([]float64, g.P()),
	}
	for i := range r.Masses {
		r.Masses[i] = g.Mass(i)
	}
	return r, nil
}

// Grid writes a description of the size grid specified by cfg to w
// in YAML format.
func Grid(w io.Writer, cfg aerosol.SizeGridConfig) error {
	r, err := NewGridReport(cfg)
	if err != nil {
		return err
	}
	e := yaml.NewEncoder(w)
	defer e.Close()
	return e.Encode(r)
}

// CheckpointReport describes a checkpoint file.
type CheckpointReport struct {
	File         string    `yaml:"file"`
	Version      string    `yaml:"version,omitempty"`
	Time         float64   `yaml:"time"`
	Cells        int       `yaml:"cells"`
	Distribution string    `yaml:"distribution,omitempty"`
	Sizes        []float64 `yaml:"sizes,omitempty"`
	Variables    []string  `yaml:"variables"`
}

// ReadCheckpointReport reads the header of a checkpoint file.
func ReadCheckpointReport(filename string) (*CheckpointReport, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("aerosolutil: opening checkpoint: %w", err)
	}
	defer f.Close()
	cf, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("aerosolutil: reading checkpoint %s: %w", filename, err)
	}
	r := &CheckpointReport{File: filename, Variables: cf.Header.Variables()}
	sort.Strings(r.Variables)
	if v, ok := cf.Header.GetAttribute("", "version").(string); ok {
		r.Version = v
	}
	if v, ok := cf.Header.GetAttribute("", "distribution").(string); ok {
		r.Distribution = v
	}
	if v, ok := cf.Header.GetAttribute("", "time").([]float64); ok && len(v) > 0 {
		r.Time = v[0]
	}
	if v, ok := cf.Header.GetAttribute("", "x").([]float64); ok {
		r.Sizes = v
	}
	if l := cf.Header.Lengths("T"); len(l) > 0 {
		r.Cells = l[0]
	}
	return r, nil
}

// CheckpointSummary writes a description of a checkpoint file to w in
// YAML format.
func CheckpointSummary(w io.Writer, filename string) error {
	r, err := ReadCheckpointReport(filename)
	if err != nil {
		return err
	}
	e := yaml.NewEncoder(w)
	defer e.Close()
	return e.Encode(r)
}
