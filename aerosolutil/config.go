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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/aerosol"
	"github.com/spf13/cast"
)

// checkOutputVars removes end lines and expands environment
// variables in the output variables.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("there are no variables specified for output. Please fill in " +
			"the OutputVariables configuration and try again")
	}
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		o[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return o, nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.ncf")`)
	}
	f = os.ExpandEnv(f)
	if _, err := os.Stat(filepath.Dir(f)); err != nil {
		return f, fmt.Errorf("aerosol: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return os.ExpandEnv(logFile)
}

// toFloat64SliceE converts a list that may have been set in a configuration
// file, as a command line argument, or as a JSON string.
func toFloat64SliceE(s interface{}) ([]float64, error) {
	switch v := s.(type) {
	case nil:
		return nil, nil
	case []float64:
		return v, nil
	case string:
		if v == "" || v == "[]" {
			return nil, nil
		}
		var o []float64
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, err
		}
		return o, nil
	case []string:
		if len(v) == 0 {
			return nil, nil
		}
		o := make([]float64, len(v))
		for i, e := range v {
			f, err := cast.ToFloat64E(strings.TrimSpace(e))
			if err != nil {
				return nil, err
			}
			o[i] = f
		}
		return o, nil
	}
	l, err := cast.ToSliceE(s)
	if err != nil {
		return nil, err
	}
	o := make([]float64, len(l))
	for i, e := range l {
		if o[i], err = cast.ToFloat64E(e); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if v == "" {
			return o, nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("aerosolutil: parsing %s: %w", varName, err)
		}
		return o, nil
	}
	return nil, fmt.Errorf("aerosolutil: invalid type for variable %s: %#v", varName, i)
}

// SectionalConfig unmarshals the sectional model configuration.
func SectionalConfig(cfg *viper.Viper) (aerosol.SectionalConfig, error) {
	c := aerosol.DefaultSectionalConfig()
	var err error
	if c.Grid.Distribution, err = aerosol.ParseSizeDistribution(cfg.GetString("Sectional.SizeDistribution")); err != nil {
		return c, err
	}
	if c.Grid.Position, err = aerosol.ParseSizePosition(cfg.GetString("Sectional.SizePosition")); err != nil {
		return c, err
	}
	if c.Grid.Dimension, err = aerosol.ParseSizeDimension(cfg.GetString("Sectional.SizeDimension")); err != nil {
		return c, err
	}
	if c.Grid.List, err = toFloat64SliceE(cfg.Get("Sectional.List")); err != nil {
		return c, fmt.Errorf("Sectional.List: %v", err)
	}
	if c.DistMethod, err = aerosol.ParseDistMethod(cfg.GetString("Sectional.DistMethod")); err != nil {
		return c, err
	}
	if c.DefectPolicy, err = aerosol.ParseDefectPolicy(cfg.GetString("Sectional.DefectPolicy")); err != nil {
		return c, err
	}
	c.Grid.P = cfg.GetInt("Sectional.P")
	c.Grid.YMin = cfg.GetFloat64("Sectional.YMin")
	c.Grid.YMax = cfg.GetFloat64("Sectional.YMax")
	c.Grid.Q = cfg.GetFloat64("Sectional.Q")
	c.Grid.Nominal = cfg.GetFloat64("Sectional.Nominal")
	c.Grid.DropletDensity = cfg.GetFloat64("Sectional.DropletDensity")

	c.Phi = cfg.GetFloat64("Sectional.Phi")
	c.DefectWarnThreshold = cfg.GetFloat64("Sectional.DefectWarnThreshold")
	c.DoCond = cfg.GetBool("Sectional.DoCond")
	c.DoNuc = cfg.GetBool("Sectional.DoNuc")
	c.DoCoa = cfg.GetBool("Sectional.DoCoa")
	c.DoDrift = cfg.GetBool("Sectional.DoDrift")
	c.DoCorrSizeDist = cfg.GetBool("Sectional.DoCorrSizeDist")
	c.DoMonitors = cfg.GetBool("Sectional.DoMonitors")
	c.MaxCFL = cfg.GetFloat64("Sectional.MaxCFL")
	c.MaxCoaFraction = cfg.GetFloat64("Sectional.MaxCoaFraction")
	c.MaxSubsteps = cfg.GetInt("Sectional.MaxSubsteps")
	c.MassConservationTolerance = cfg.GetFloat64("Sectional.MassConservationTolerance")
	c.MassConservationRelaxation = cfg.GetFloat64("Sectional.MassConservationRelaxation")
	c.CorrectThreshold = cfg.GetFloat64("Sectional.CorrectThreshold")
	return c, nil
}
