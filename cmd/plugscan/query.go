package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/plugscan"
)

var flagLoad []string

// addLoadFlag registers --load on commands that query a registry which may
// need units loaded first.
func addLoadFlag(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&flagLoad, "load", nil, "glob of units to load before querying (repeatable)")
}

// --- check ---

var checkCmd = &cobra.Command{
	Use:   "check <implements|extends|inherits> <type> <target>",
	Short: "Evaluate a relationship between two registered types",
	Args:  cobra.ExactArgs(3),
	RunE:  runCheck,
}

func init() {
	addLoadFlag(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	rel, err := plugscan.ParseRelationship(args[0])
	if err != nil {
		return outputError("check", err)
	}
	e, err := openEngine()
	if err != nil {
		return outputError("check", err)
	}
	defer e.Close()
	if err := loadPatterns(cmd.Context(), e, flagLoad); err != nil {
		return outputError("check", err)
	}

	q := e.Query()
	var holds bool
	switch rel {
	case plugscan.RelImplements:
		holds, err = q.Implements(args[1], args[2])
	case plugscan.RelExtends:
		holds, err = q.Extends(args[1], args[2])
	case plugscan.RelInheritsOrEquals:
		holds, err = q.InheritsOrEquals(args[1], args[2])
	}
	if err != nil {
		return outputError("check", err)
	}
	return outputResult(CLIResult{
		Command: "check",
		Results: CLICheck{Relation: rel.String(), Type: args[1], Target: args[2], Holds: holds},
	})
}

// --- hierarchy ---

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy <type>",
	Short: "Show a type with its direct subtypes and implementers",
	Args:  cobra.ExactArgs(1),
	RunE:  runHierarchy,
}

func init() {
	addLoadFlag(hierarchyCmd)
}

func runHierarchy(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return outputError("hierarchy", err)
	}
	defer e.Close()
	if err := loadPatterns(cmd.Context(), e, flagLoad); err != nil {
		return outputError("hierarchy", err)
	}

	h, err := e.Query().Hierarchy(args[0])
	if err != nil {
		return outputError("hierarchy", err)
	}
	if h == nil {
		return outputError("hierarchy", &plugscan.UnknownTypeError{Name: args[0]})
	}
	return outputResult(CLIResult{
		Command: "hierarchy",
		Results: CLIHierarchy{
			Type:         typeToCLI(h.Type),
			Subtypes:     typesToCLI(h.Subtypes),
			Implementers: typesToCLI(h.Implementers),
		},
	})
}

// --- types ---

var (
	flagKinds        []string
	flagInstantiable bool
	flagImplementing string
	flagPathPrefix   string
	flagLimit        int
	flagOffset       int
	flagSort         string
	flagOrder        string
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List registered types",
	Args:  cobra.NoArgs,
	RunE:  runTypes,
}

func init() {
	addLoadFlag(typesCmd)
	typesCmd.Flags().StringSliceVar(&flagKinds, "kind", nil, "filter by kind: class|interface|trait|enum (repeatable)")
	typesCmd.Flags().BoolVar(&flagInstantiable, "instantiable", false, "only instantiable types")
	typesCmd.Flags().StringVar(&flagImplementing, "capability", "", "only types whose capability closure contains this type")
	typesCmd.Flags().StringVar(&flagPathPrefix, "path-prefix", "", "only types defined under this directory")
	typesCmd.Flags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	typesCmd.Flags().IntVar(&flagOffset, "offset", 0, "pagination offset")
	typesCmd.Flags().StringVar(&flagSort, "sort", "", "sort field: id|name|kind|path")
	typesCmd.Flags().StringVar(&flagOrder, "order", "asc", "sort order: asc|desc")
}

func runTypes(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return outputError("types", err)
	}
	defer e.Close()
	if err := loadPatterns(cmd.Context(), e, flagLoad); err != nil {
		return outputError("types", err)
	}

	var filter plugscan.TypeFilter
	filter.Kinds = flagKinds
	if flagInstantiable {
		filter.Instantiable = &flagInstantiable
	}
	if flagImplementing != "" {
		filter.Capability = &flagImplementing
	}
	if flagPathPrefix != "" {
		filter.PathPrefix = &flagPathPrefix
	}
	sort, err := buildSort()
	if err != nil {
		return outputError("types", err)
	}

	res, err := e.Query().Types(filter, sort, plugscan.Pagination{Limit: flagLimit, Offset: flagOffset})
	if err != nil {
		return outputError("types", err)
	}
	return outputResult(CLIResult{
		Command:    "types",
		Results:    typesToCLI(res.Items),
		TotalCount: &res.TotalCount,
	})
}

// buildSort creates a Sort from CLI flags.
func buildSort() (plugscan.Sort, error) {
	var s plugscan.Sort
	switch flagSort {
	case "", "id":
		s.Field = plugscan.SortByID
	case "name":
		s.Field = plugscan.SortByName
	case "kind":
		s.Field = plugscan.SortByKind
	case "path":
		s.Field = plugscan.SortByPath
	default:
		return s, fmt.Errorf("invalid sort field %q: must be id, name, kind or path", flagSort)
	}
	switch flagOrder {
	case "", "asc":
		s.Order = plugscan.Asc
	case "desc":
		s.Order = plugscan.Desc
	default:
		return s, fmt.Errorf("invalid sort order %q: must be asc or desc", flagOrder)
	}
	return s, nil
}
