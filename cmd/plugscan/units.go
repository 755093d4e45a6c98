package main

import (
	"github.com/spf13/cobra"
)

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List registered units and the types each defined",
	Args:  cobra.NoArgs,
	RunE:  runUnits,
}

func init() {
	addLoadFlag(unitsCmd)
}

func runUnits(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return outputError("units", err)
	}
	defer e.Close()
	if err := loadPatterns(cmd.Context(), e, flagLoad); err != nil {
		return outputError("units", err)
	}

	units, err := e.Units()
	if err != nil {
		return outputError("units", err)
	}
	return outputResult(CLIResult{Command: "units", Results: unitsToCLI(units)})
}
