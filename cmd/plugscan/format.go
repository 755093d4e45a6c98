package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if cfg.Format == "text" {
		return outputResultText(stdout, result)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if cfg == nil || cfg.Format == "text" {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.Red.Sprint("Error:"), err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []string:
		formatNamesText(w, v)
	case []CLIType:
		formatTypesText(w, v)
	case CLICheck:
		formatCheckText(w, v)
	case CLIHierarchy:
		formatHierarchyText(w, v)
	case []CLIContract:
		formatContractsText(w, v)
	case []CLIUnit:
		formatUnitsText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		if shown := resultLen(result.Results); shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

func formatNamesText(w io.Writer, names []string) {
	for _, name := range names {
		fmt.Fprintln(w, name)
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	return table
}

func formatTypesText(w io.Writer, types []CLIType) {
	table := newTable(w, "Name", "Kind", "Instantiable", "Capabilities", "File")
	for _, t := range types {
		table.Append([]string{t.Name, t.Kind, yesNo(t.Instantiable), strings.Join(t.Capabilities, ", "), t.File})
	}
	table.Render()
}

func formatCheckText(w io.Writer, c CLICheck) {
	verdict := color.Green.Sprint("yes")
	if !c.Holds {
		verdict = color.Red.Sprint("no")
	}
	fmt.Fprintf(w, "%s %s %s: %s\n", c.Type, c.Relation, c.Target, verdict)
}

func formatHierarchyText(w io.Writer, h CLIHierarchy) {
	fmt.Fprintf(w, "%s (%s)\n", color.Bold.Sprint(h.Type.Name), h.Type.Kind)
	if h.Type.File != "" {
		fmt.Fprintf(w, "File: %s\n", h.Type.File)
	}
	if len(h.Type.Ancestors) > 0 {
		fmt.Fprintf(w, "Ancestors: %s\n", strings.Join(h.Type.Ancestors, " > "))
	}
	if len(h.Type.Capabilities) > 0 {
		fmt.Fprintf(w, "Capabilities: %s\n", strings.Join(h.Type.Capabilities, ", "))
	}
	if len(h.Type.RequiredMethods) > 0 {
		fmt.Fprintf(w, "Required methods: %s\n", strings.Join(h.Type.RequiredMethods, ", "))
	}
	if len(h.Subtypes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, color.Cyan.Sprint("Subtypes:"))
		formatTypesText(w, h.Subtypes)
	}
	if len(h.Implementers) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, color.Cyan.Sprint("Implementers:"))
		formatTypesText(w, h.Implementers)
	}
}

func formatContractsText(w io.Writer, cs []CLIContract) {
	table := newTable(w, "Capability", "Qualified name", "Go type", "Methods")
	for _, c := range cs {
		table.Append([]string{c.Name, c.Qualified, c.GoType, strings.Join(c.Methods, ", ")})
	}
	table.Render()
}

func formatUnitsText(w io.Writer, us []CLIUnit) {
	table := newTable(w, "Path", "Language", "Types", "Loaded")
	for _, u := range us {
		table.Append([]string{u.Path, u.Language, strings.Join(u.Types, ", "), u.LoadedAt.Local().Format(time.DateTime)})
	}
	table.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []string:
		return len(r)
	case []CLIType:
		return len(r)
	case []CLIContract:
		return len(r)
	case []CLIUnit:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
