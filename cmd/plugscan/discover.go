package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/plugscan"
)

var (
	flagCapability string
	flagRelation   string
)

var discoverCmd = &cobra.Command{
	Use:   "discover <pattern>...",
	Short: "Discover instantiable types satisfying a capability",
	Long: "Loads every file matched by the glob patterns and lists the instantiable types those files define " +
		"that implement, extend, or inherit from the capability. Units that fail to load are skipped; " +
		"a unit that writes output while loading aborts the command.",
	Args: cobra.MinimumNArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVar(&flagCapability, "capability", "", "capability type id (required)")
	discoverCmd.Flags().StringVar(&flagRelation, "relation", "", "relationship: implements|extends|inherits (default from config)")
	_ = discoverCmd.MarkFlagRequired("capability")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	relation := flagRelation
	if relation == "" {
		relation = cfg.Discovery.Relation
	}
	rel, err := plugscan.ParseRelationship(relation)
	if err != nil {
		return outputError("discover", err)
	}

	e, err := openEngine()
	if err != nil {
		return outputError("discover", err)
	}
	defer e.Close()

	seq, err := e.Discover(cmd.Context(), plugscan.Query{
		Patterns:     args,
		Capability:   flagCapability,
		Relationship: rel,
	})
	if err != nil {
		return outputError("discover", err)
	}
	names := []string{}
	for name, err := range seq {
		if err != nil {
			return outputError("discover", err)
		}
		names = append(names, name)
	}

	total := len(names)
	return outputResult(CLIResult{
		Command:    "discover",
		Results:    names,
		TotalCount: &total,
	})
}
