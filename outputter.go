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
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// Outputter calculates user-defined output variables from the cell fields
// and writes them to a netCDF file.
//
// outputVariables maps the names of the variables to be written to
// expressions that define how they are calculated. Expressions can use
// the model variables listed by Sectional.OutputOptions, other output
// variables, and functions.
type Outputter struct {
	fileName        string
	outputVariables map[string]string
	outputFunctions map[string]govaluate.ExpressionFunction
	expressions     map[string]*govaluate.EvaluableExpression
}

// NewOutputter initializes a new Outputter and adds a set of default
// output functions:
//
// 'exp(x)' which applies the exponential function e^x.
//
// 'log(x)' which returns the natural logarithm of x.
//
// 'sum(x)' which sums a variable across all cells.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	funcs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("aerosol: got %d arguments for function 'exp', but needs 1", len(arg))
			}
			return math.Exp(arg[0].(float64)), nil
		},
		"log": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("aerosol: got %d arguments for function 'log', but needs 1", len(arg))
			}
			return math.Log(arg[0].(float64)), nil
		},
		"sum": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("aerosol: got %d arguments for function 'sum', but needs 1", len(arg))
			}
			v, ok := arg[0].([]float64)
			if !ok {
				return nil, fmt.Errorf("aerosol: the argument of 'sum' must be a model variable")
			}
			return floats.Sum(v), nil
		},
	}
	for k, f := range outputFunctions {
		funcs[k] = f
	}
	o := &Outputter{
		fileName:        fileName,
		outputVariables: make(map[string]string, len(outputVariables)),
		outputFunctions: funcs,
		expressions:     make(map[string]*govaluate.EvaluableExpression, len(outputVariables)),
	}
	for name, expr := range outputVariables {
		e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, funcs)
		if err != nil {
			return nil, fmt.Errorf("aerosol: output variable %s: %w", name, err)
		}
		o.outputVariables[name] = expr
		o.expressions[name] = e
	}
	return o, nil
}

// Names returns the output variable names in sorted order.
func (o *Outputter) Names() []string {
	names := make([]string, 0, len(o.outputVariables))
	for n := range o.outputVariables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// OutputOptions returns the names of the model variables that can be used
// in output expressions.
func (s *Sectional) OutputOptions(m *Model) []string {
	names := []string{"T", "p", "rho", "HvapS", "defect", "N", "liquidMass"}
	for j := range m.Mixture.Species {
		names = append(names, "Y_"+m.Mixture.Species[j].Name, "Z_"+m.Mixture.Species[j].Name, "S_"+m.Mixture.Species[j].Name)
	}
	for k := Diagnostic(0); k < NumDiagnostics; k++ {
		names = append(names, k.String(), k.String()+"Mean")
	}
	for i := 0; i < s.Grid.P(); i++ {
		names = append(names, "M"+strconv.Itoa(i))
	}
	return names
}

// modelVariables returns the value of every output option in every cell.
func (s *Sectional) modelVariables(m *Model) map[string][]float64 {
	n := len(m.cells)
	o := make(map[string][]float64)
	col := func(name string, f func(c *Cell) float64) {
		v := make([]float64, n)
		for i, c := range m.cells {
			v[i] = f(c)
		}
		o[name] = v
	}
	col("T", func(c *Cell) float64 { return c.T })
	col("p", func(c *Cell) float64 { return c.P })
	col("rho", func(c *Cell) float64 { return c.Rho })
	col("HvapS", func(c *Cell) float64 { return c.HvapS })
	col("defect", func(c *Cell) float64 { return c.Defect })
	col("N", func(c *Cell) float64 { return floats.Sum(c.M) })
	col("liquidMass", func(c *Cell) float64 { return floats.Dot(c.M, s.Grid.xi) })
	for j, sp := range m.Mixture.Species {
		j := j
		col("Y_"+sp.Name, func(c *Cell) float64 { return c.Y[j] })
		col("Z_"+sp.Name, func(c *Cell) float64 { return c.Z[j] })
		col("S_"+sp.Name, func(c *Cell) float64 { return c.S[j] })
	}
	for k := Diagnostic(0); k < NumDiagnostics; k++ {
		k := k
		col(k.String(), func(c *Cell) float64 { return c.Diag[k] })
		col(k.String()+"Mean", func(c *Cell) float64 { return c.Mean[k] })
	}
	for i := 0; i < s.Grid.P(); i++ {
		i := i
		col("M"+strconv.Itoa(i), func(c *Cell) float64 { return c.M[i] })
	}
	return o
}

// Results calculates the output variables in every cell.
func (s *Sectional) Results(m *Model, o *Outputter) (map[string][]float64, error) {
	vars := s.modelVariables(m)
	n := len(m.cells)
	res := make(map[string][]float64, len(o.expressions))
	visiting := make(map[string]bool)

	var eval func(name string) ([]float64, error)
	eval = func(name string) ([]float64, error) {
		if r, ok := res[name]; ok {
			return r, nil
		}
		if visiting[name] {
			return nil, fmt.Errorf("aerosol: output variable %s is defined in terms of itself", name)
		}
		visiting[name] = true
		defer delete(visiting, name)

		e := o.expressions[name]
		params := make(map[string][]float64)
		for _, v := range e.Vars() {
			if _, ok := params[v]; ok {
				continue
			}
			if _, ok := o.expressions[v]; ok && v != name {
				r, err := eval(v)
				if err != nil {
					return nil, err
				}
				params[v] = r
				continue
			}
			d, ok := vars[v]
			if !ok {
				return nil, fmt.Errorf("aerosol: undefined variable name '%s' in output variable %s", v, name)
			}
			params[v] = d
		}

		out := make([]float64, n)
		if strings.Contains(o.outputVariables[name], "sum(") {
			// Domain totals are the same in every cell.
			p := make(map[string]interface{}, len(params))
			for k, v := range params {
				p[k] = v
			}
			r, err := e.Evaluate(p)
			if err != nil {
				return nil, fmt.Errorf("aerosol: output variable %s: %w", name, err)
			}
			f, ok := r.(float64)
			if !ok {
				return nil, fmt.Errorf("aerosol: output variable %s does not evaluate to a number", name)
			}
			for i := range out {
				out[i] = f
			}
		} else {
			p := make(map[string]interface{}, len(params))
			for i := range out {
				for k, v := range params {
					p[k] = v[i]
				}
				r, err := e.Evaluate(p)
				if err != nil {
					return nil, fmt.Errorf("aerosol: output variable %s: %w", name, err)
				}
				f, ok := r.(float64)
				if !ok {
					return nil, fmt.Errorf("aerosol: output variable %s does not evaluate to a number", name)
				}
				out[i] = f
			}
		}
		res[name] = out
		return out, nil
	}
	for _, name := range o.Names() {
		if _, err := eval(name); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Output returns a function that writes the output variables of every cell
// to the Outputter's netCDF file.
func (s *Sectional) Output(o *Outputter) DomainManipulator {
	return func(m *Model) error {
		res, err := s.Results(m, o)
		if err != nil {
			return err
		}
		names := o.Names()
		h := cdf.NewHeader([]string{"cell"}, []int{len(m.cells)})
		h.AddAttribute("", "comment", "Sectional aerosol model output")
		h.AddAttribute("", "time", []float64{m.Time})
		for _, name := range names {
			h.AddVariable(name, []string{"cell"}, []float64{0})
			h.AddAttribute(name, "expression", o.outputVariables[name])
		}
		h.Define()
		w, err := os.Create(o.fileName)
		if err != nil {
			return fmt.Errorf("aerosol: creating output file: %w", err)
		}
		defer w.Close()
		f, err := cdf.Create(w, h)
		if err != nil {
			return fmt.Errorf("aerosol: creating output file: %w", err)
		}
		for _, name := range names {
			a := sparse.ZerosDense(len(m.cells))
			copy(a.Elements, res[name])
			if err := writeNCF(f, name, a); err != nil {
				return fmt.Errorf("aerosol: writing output variable %s: %w", name, err)
			}
		}
		if err := cdf.UpdateNumRecs(w); err != nil {
			return err
		}
		return nil
	}
}
