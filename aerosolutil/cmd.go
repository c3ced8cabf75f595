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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/aerosol"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to the model.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "CaseFile",
			usage: `
              CaseFile is the path to the TOML file describing the species,
              the closure models, and the initial state of the cells.`,
			shorthand:  "c",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile specifies the path to the desired netCDF output file
              location, including the file name.`,
			shorthand:  "o",
			defaultVal: "aerosol_output.ncf",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which model variables should be included in the
              output file. It can include environment variables.`,
			defaultVal: map[string]string{
				"N":   "N",
				"dcm": "dcm",
				"dmm": "dmm",
			},
			flagsets: []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile specifies the path to the desired logfile location. It can include
              environment variables. If LogFile is left blank, the logfile will be saved in
              the same location as the OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "CheckpointDir",
			usage: `
              CheckpointDir is the directory where checkpoints of the model state
              are written. If it is blank, no checkpoints are written.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "CheckpointInterval",
			usage: `
              CheckpointInterval is the simulated time [s] between checkpoints.
              If it is zero, a checkpoint is only written at the end of the run.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Restart",
			usage: `
              Restart is the path to a checkpoint file to start the simulation from.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Dt",
			usage: `
              Dt is the initial time step [s].`,
			defaultVal: 1.0e-4,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "EndTime",
			usage: `
              EndTime is the simulated time [s] at which the simulation stops.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "AdjustTimeStep",
			usage: `
              AdjustTimeStep specifies whether the time step should be adjusted
              during the simulation so that the largest Courant number approaches MaxCo.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "MaxCo",
			usage: `
              MaxCo is the target Courant number when AdjustTimeStep is true.`,
			defaultVal: 0.5,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "MaxDeltaT",
			usage: `
              MaxDeltaT is the largest allowed time step [s].`,
			defaultVal: 1.0e-2,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "StartAveraging",
			usage: `
              StartAveraging is the simulated time [s] at which the time averaging
              of the cell diagnostics begins.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "PlausibilityFile",
			usage: `
              PlausibilityFile is the path to an optional file with a [limits]
              section giving the plausible range of the cell fields.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "MetricsAddress",
			usage: `
              MetricsAddress is the address (for example ":9090") where simulation
              metrics are served in Prometheus format. If it is blank, metrics
              are not served.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Sectional.P",
			usage: `
              Sectional.P is the number of size sections.`,
			defaultVal: 40,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "Sectional.SizeDistribution",
			usage: `
              Sectional.SizeDistribution specifies how the section sizes are laid
              out. Options are none, linear, logarithmic, geometric, and list.`,
			defaultVal: "logarithmic",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "Sectional.SizePosition",
			usage: `
              Sectional.SizePosition specifies whether the representative sizes are
              placed between the section boundaries (center) or on the grid nodes
              (interface).`,
			defaultVal: "center",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "Sectional.SizeDimension",
			usage: `
              Sectional.SizeDimension is the quantity section sizes are given in.
              Options are mass [kg], volume [m³], and diameter [m].`,
			defaultVal: "diameter",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "Sectional.YMin",
			usage: `
              Sectional.YMin is the smallest droplet size.`,
			defaultVal: 1.0e-9,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "Sectional.YMax",
			usage: `
              Sectional.YMax is the largest droplet size.`,
			defaultVal: 1.0e-5,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "Sectional.Q",
			usage: `
              Sectional.Q is the ratio of neighboring section widths for the
              geometric size distribution.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "Sectional.Nominal",
			usage: `
              Sectional.Nominal is the size of the single section of the none
              size distribution.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "Sectional.List",
			usage: `
              Sectional.List holds the grid nodes of the list size distribution.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "Sectional.DropletDensity",
			usage: `
              Sectional.DropletDensity [kg/m³] relates droplet diameter and volume
              to droplet mass.`,
			defaultVal: 1000.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), gridCmd.Flags()},
		},
		{
			name: "Sectional.DistMethod",
			usage: `
              Sectional.DistMethod is the redistribution method for droplets between
              sections. Options are twoMoment, fourMoment, and hybrid.`,
			defaultVal: "twoMoment",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Sectional.Phi",
			usage: `
              Sectional.Phi is the largest share of four-moment redistribution
              used by the hybrid method.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Sectional.DefectPolicy",
			usage: `
              Sectional.DefectPolicy specifies what happens to droplets that grow
              beyond the largest section. Options are discard and lastSection.`,
			defaultVal: "discard",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Sectional.DefectWarnThreshold",
			usage: `
              Sectional.DefectWarnThreshold is the discarded droplet mass, relative to
              the droplet mass in the domain, above which a warning is logged.`,
			defaultVal: 1.0e-3,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name:       "Sectional.DoCond",
			usage:      "\n              Sectional.DoCond switches condensation and evaporation on.",
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name:       "Sectional.DoNuc",
			usage:      "\n              Sectional.DoNuc switches nucleation on.",
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name:       "Sectional.DoCoa",
			usage:      "\n              Sectional.DoCoa switches coalescence on.",
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name:       "Sectional.DoDrift",
			usage:      "\n              Sectional.DoDrift switches droplet drift relative to the gas on.",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Sectional.DoCorrSizeDist",
			usage: `
              Sectional.DoCorrSizeDist specifies whether the size grid is extended
              when too much droplet mass reaches the largest section.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name:       "Sectional.DoMonitors",
			usage:      "\n              Sectional.DoMonitors switches the calculation of cell diagnostics on.",
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Sectional.MaxCFL",
			usage: `
              Sectional.MaxCFL is the largest fraction of a section width that
              droplets may grow or shrink in one condensation substep.`,
			defaultVal: 0.5,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Sectional.MaxCoaFraction",
			usage: `
              Sectional.MaxCoaFraction is the largest fraction of the droplets in a
              section that may coalesce in one coalescence substep.`,
			defaultVal: 0.5,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Sectional.MaxSubsteps",
			usage: `
              Sectional.MaxSubsteps limits the number of substeps of each process.`,
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Sectional.MassConservationTolerance",
			usage: `
              Sectional.MassConservationTolerance is the deviation of the sum of the
              species mass fractions from one that is tolerated without rescaling.`,
			defaultVal: 1.0e-8,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Sectional.MassConservationRelaxation",
			usage: `
              Sectional.MassConservationRelaxation is the fraction of the mass
              fraction error that is corrected in each time step.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Sectional.CorrectThreshold",
			usage: `
              Sectional.CorrectThreshold is the fraction of droplet mass in the
              largest section above which the size grid is extended.`,
			defaultVal: 0.05,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("AEROSOL")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(v)
				set.StringP(option.name, option.shorthand, b.String(), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(gridCmd)
	Root.AddCommand(checkpointCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("aerosol: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "aerosol",
	Short: "A sectional model of aerosol droplet size distributions.",
	Long: `aerosol simulates the droplet size distribution of an aerosol as it
evolves by nucleation, condensation and evaporation, and coalescence.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'AEROSOL_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of the aerosol model.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("aerosol v%s\n", aerosol.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd is a command that runs a simulation.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model.",
	Long: `run runs a simulation of the cells described in the case file until
EndTime is reached, writing the output variables to OutputFile. The simulation
stops early, after writing a checkpoint, when it is interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		sc, err := SectionalConfig(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		vars, err := GetStringMapString("OutputVariables", Cfg)
		if err != nil {
			return err
		}
		outputVars, err := checkOutputVars(vars)
		if err != nil {
			return err
		}
		caseFile := os.ExpandEnv(Cfg.GetString("CaseFile"))
		if caseFile == "" {
			return fmt.Errorf("you need to specify a case file (for example: --CaseFile=case.toml)")
		}
		c, err := LoadCase(caseFile)
		if err != nil {
			return err
		}
		limits := aerosol.DefaultLimits()
		if f := os.ExpandEnv(Cfg.GetString("PlausibilityFile")); f != "" {
			if limits, err = aerosol.LoadPlausibilityLimits(f); err != nil {
				return err
			}
		}
		return Run(ctx, cmd, c, sc, RunConfig{
			LogFile:            checkLogFile(Cfg.GetString("LogFile"), outputFile),
			OutputFile:         outputFile,
			OutputVariables:    outputVars,
			CheckpointDir:      os.ExpandEnv(Cfg.GetString("CheckpointDir")),
			CheckpointInterval: Cfg.GetFloat64("CheckpointInterval"),
			Restart:            os.ExpandEnv(Cfg.GetString("Restart")),
			Dt:                 Cfg.GetFloat64("Dt"),
			EndTime:            Cfg.GetFloat64("EndTime"),
			AdjustTimeStep:     Cfg.GetBool("AdjustTimeStep"),
			MaxCo:              Cfg.GetFloat64("MaxCo"),
			MaxDeltaT:          Cfg.GetFloat64("MaxDeltaT"),
			StartAveraging:     Cfg.GetFloat64("StartAveraging"),
			Limits:             limits,
			MetricsAddress:     Cfg.GetString("MetricsAddress"),
		})
	},
	DisableAutoGenTag: true,
}

// gridCmd is a command that prints the size grid.
var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Print the size grid",
	Long: `grid creates the size grid specified by the Sectional configuration
and prints its section boundaries, representative sizes, and droplet masses
in YAML format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := SectionalConfig(Cfg)
		if err != nil {
			return err
		}
		return Grid(cmd.OutOrStdout(), sc.Grid)
	},
	DisableAutoGenTag: true,
}

// checkpointCmd is a command that summarizes checkpoint files.
var checkpointCmd = &cobra.Command{
	Use:   "checkpoint file [file...]",
	Short: "Summarize checkpoint files",
	Long: `checkpoint prints the simulated time, the size grid, and the stored
variables of one or more checkpoint files in YAML format.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, f := range args {
			if err := CheckpointSummary(cmd.OutOrStdout(), os.ExpandEnv(f)); err != nil {
				return err
			}
		}
		return nil
	},
	DisableAutoGenTag: true,
}
