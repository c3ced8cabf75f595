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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// checkpointRetries is the number of times a failed checkpoint write is
// retried.
const checkpointRetries = 4

// CheckpointFile returns the name of the checkpoint for simulated time t [s]
// in directory dir.
func CheckpointFile(dir string, t float64) string {
	return filepath.Join(dir, strconv.FormatFloat(t, 'g', -1, 64)+".ncf")
}

// checkpointData holds the cell fields in the layout they are stored in.
type checkpointData struct {
	names []string
	dims  map[string][]string
	data  map[string]*sparse.DenseArray
}

func (d *checkpointData) add(name string, a *sparse.DenseArray, dims ...string) {
	d.names = append(d.names, name)
	d.dims[name] = dims
	d.data[name] = a
}

// gather copies the cell fields into arrays.
func (s *Sectional) gather(m *Model) *checkpointData {
	cells := m.cells
	n := len(cells)
	d := &checkpointData{dims: make(map[string][]string), data: make(map[string]*sparse.DenseArray)}
	scalar := func(name string, f func(c *Cell) float64) {
		a := sparse.ZerosDense(n)
		for i, c := range cells {
			a.Elements[i] = f(c)
		}
		d.add(name, a, "cell")
	}
	scalar("T", func(c *Cell) float64 { return c.T })
	scalar("p", func(c *Cell) float64 { return c.P })
	scalar("rho", func(c *Cell) float64 { return c.Rho })
	for j, sp := range m.Mixture.Species {
		j := j
		scalar("Y."+sp.Name, func(c *Cell) float64 { return c.Y[j] })
		scalar("Z."+sp.Name, func(c *Cell) float64 { return c.Z[j] })
	}
	for k := 0; k < s.Grid.P(); k++ {
		k := k
		scalar("M."+strconv.Itoa(k), func(c *Cell) float64 { return c.M[k] })
		v := sparse.ZerosDense(n, 3)
		for i, c := range cells {
			for l := 0; l < 3; l++ {
				v.Set(c.V[k][l], i, l)
			}
		}
		d.add("V."+strconv.Itoa(k), v, "cell", "xyz")
	}
	return d
}

// WriteCheckpoint writes the state of every cell in m to a netCDF file in
// dir and returns the name of the file. Failed writes are retried with
// exponential backoff until ctx is cancelled.
func (s *Sectional) WriteCheckpoint(ctx context.Context, dir string, m *Model) (string, error) {
	start := time.Now()
	defer s.Metrics.ObserveCheckpoint(start)

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("aerosol: creating checkpoint directory: %w", err)
	}
	fname := CheckpointFile(dir, m.Time)
	d := s.gather(m)
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), checkpointRetries), ctx)
	err := backoff.RetryNotify(
		func() error { return s.writeCheckpoint(fname, m.Time, d, len(m.cells)) },
		b,
		func(err error, wait time.Duration) {
			s.Log.WithError(err).WithField("file", fname).Warnf("aerosol: writing checkpoint: retrying in %v", wait)
		},
	)
	if err != nil {
		return "", fmt.Errorf("aerosol: writing checkpoint %s: %w", fname, err)
	}
	s.Log.WithField("file", fname).Info("aerosol: wrote checkpoint")
	return fname, nil
}

func (s *Sectional) writeCheckpoint(fname string, t float64, d *checkpointData, nCells int) error {
	h := cdf.NewHeader([]string{"cell", "xyz"}, []int{nCells, 3})
	h.AddAttribute("", "comment", "Sectional aerosol model state")
	h.AddAttribute("", "version", Version)
	h.AddAttribute("", "time", []float64{t})
	h.AddAttribute("", "x", s.Grid.Xs())
	h.AddAttribute("", "y", s.Grid.Ys())
	h.AddAttribute("", "distribution", s.Grid.cfg.Distribution.String())
	for _, name := range d.names {
		h.AddVariable(name, d.dims[name], []float64{0})
	}
	h.Define()

	w, err := os.Create(fname)
	if err != nil {
		return err
	}
	f, err := cdf.Create(w, h)
	if err != nil {
		w.Close()
		return err
	}
	for _, name := range d.names {
		if err := writeNCF(f, name, d.data[name]); err != nil {
			w.Close()
			return fmt.Errorf("variable %s: %w", name, err)
		}
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func writeNCF(f *cdf.File, name string, data *sparse.DenseArray) error {
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	_, err := w.Write(data.Elements)
	return err
}

func readNCF(f *cdf.File, name string) (*sparse.DenseArray, error) {
	dims := f.Header.Lengths(name)
	a := sparse.ZerosDense(dims...)
	r := f.Reader(name, nil, nil)
	if _, err := r.Read(a.Elements); err != nil {
		return nil, fmt.Errorf("aerosol: reading %s: %w", name, err)
	}
	return a, nil
}

// ReadCheckpoint sets the state of the cells in m from a netCDF file and
// returns the simulated time it was written at. A checkpoint written after
// the size grid was extended restores the extended grid. If the file holds
// a total droplet number M instead of sectional numbers M.<i>, the droplets
// are spread over the sections according to init.
func (s *Sectional) ReadCheckpoint(rw cdf.ReaderWriterAt, m *Model, init InitialDistribution) (float64, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return 0, fmt.Errorf("aerosol: opening checkpoint: %w", err)
	}
	has := make(map[string]bool)
	for _, v := range f.Header.Variables() {
		has[v] = true
	}
	var t float64
	if a, ok := f.Header.GetAttribute("", "time").([]float64); ok && len(a) > 0 {
		t = a[0]
	}
	if xs, ok := f.Header.GetAttribute("", "x").([]float64); ok && len(xs) > 0 {
		if err := s.restoreGrid(m, xs); err != nil {
			return 0, err
		}
	}
	cells := m.cells
	set := func(name string, g func(c *Cell, v float64)) error {
		if !has[name] {
			return nil
		}
		a, err := readNCF(f, name)
		if err != nil {
			return err
		}
		if len(a.Elements) < len(cells) {
			return fmt.Errorf("aerosol: checkpoint variable %s has %d values for %d cells",
				name, len(a.Elements), len(cells))
		}
		for i, c := range cells {
			g(c, a.Elements[i])
		}
		return nil
	}
	if err := set("T", func(c *Cell, v float64) { c.T = v }); err != nil {
		return 0, err
	}
	if err := set("p", func(c *Cell, v float64) { c.P = v }); err != nil {
		return 0, err
	}
	if err := set("rho", func(c *Cell, v float64) { c.Rho = v }); err != nil {
		return 0, err
	}
	for j, sp := range m.Mixture.Species {
		j := j
		if err := set("Y."+sp.Name, func(c *Cell, v float64) { c.Y[j] = v }); err != nil {
			return 0, err
		}
		if err := set("Z."+sp.Name, func(c *Cell, v float64) { c.Z[j] = v }); err != nil {
			return 0, err
		}
	}

	P := s.Grid.P()
	if !has["M.0"] {
		if !has["M"] {
			return t, nil
		}
		var initErr error
		err := set("M", func(c *Cell, v float64) {
			if initErr == nil {
				initErr = s.Initialize(c, v, init)
			}
		})
		if err != nil {
			return 0, err
		}
		return t, initErr
	}
	for k := 0; k < P; k++ {
		k := k
		name := "M." + strconv.Itoa(k)
		if !has[name] {
			return 0, fmt.Errorf("aerosol: checkpoint is missing %s; it may have been written with a different size grid", name)
		}
		if err := set(name, func(c *Cell, v float64) { c.M[k] = v }); err != nil {
			return 0, err
		}
		vname := "V." + strconv.Itoa(k)
		if !has[vname] {
			continue
		}
		a, err := readNCF(f, vname)
		if err != nil {
			return 0, err
		}
		for i, c := range cells {
			for l := 0; l < 3; l++ {
				c.V[k][l] = a.Get(i, l)
			}
		}
	}
	return t, nil
}

// Checkpoint returns a function that writes the model state to dir.
// Use it with RunPeriodically to write checkpoints at regular intervals.
func (s *Sectional) Checkpoint(ctx context.Context, dir string) DomainManipulator {
	return func(m *Model) error {
		_, err := s.WriteCheckpoint(ctx, dir, m)
		return err
	}
}
