package main

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/jward/plugscan/contracts"
	"github.com/jward/plugscan/internal/loader"
)

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "List the builtin capabilities",
	Args:  cobra.NoArgs,
	RunE:  runContracts,
}

func runContracts(cmd *cobra.Command, args []string) error {
	caps := contracts.Capabilities()
	out := make([]CLIContract, 0, len(caps))
	for _, c := range caps {
		out = append(out, CLIContract{Name: c.Name, Qualified: c.Qualified, GoType: c.GoType.String(), Methods: c.Methods})
	}
	total := len(out)
	return outputResult(CLIResult{Command: "contracts", Results: out, TotalCount: &total})
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of manifest units",
	Long:  "Prints the JSON schema that YAML and TOML manifest units are decoded against. The schema is always JSON.",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	data, err := manifestSchema()
	if err != nil {
		return outputError("schema", err)
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}

// manifestSchema reflects the manifest unit format into a JSON schema.
func manifestSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&loader.Manifest{})
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
