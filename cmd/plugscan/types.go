package main

import (
	"time"

	"github.com/jward/plugscan"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIType is a JSON-friendly type descriptor.
type CLIType struct {
	Name            string   `json:"name"`
	Kind            string   `json:"kind"`
	Instantiable    bool     `json:"instantiable"`
	Abstract        bool     `json:"abstract"`
	Parent          string   `json:"parent,omitempty"`
	Ancestors       []string `json:"ancestors,omitempty"`
	Capabilities    []string `json:"capabilities,omitempty"`
	Methods         []string `json:"methods,omitempty"`
	RequiredMethods []string `json:"required_methods,omitempty"`
	File            string   `json:"file,omitempty"`
	Language        string   `json:"language,omitempty"`
}

// CLICheck is the answer to one relationship predicate.
type CLICheck struct {
	Relation string `json:"relation"`
	Type     string `json:"type"`
	Target   string `json:"target"`
	Holds    bool   `json:"holds"`
}

// CLIHierarchy is a JSON-friendly TypeHierarchy.
type CLIHierarchy struct {
	Type         CLIType   `json:"type"`
	Subtypes     []CLIType `json:"subtypes"`
	Implementers []CLIType `json:"implementers"`
}

// CLIContract is one builtin capability.
type CLIContract struct {
	Name      string   `json:"name"`
	Qualified string   `json:"qualified"`
	GoType    string   `json:"go_type"`
	Methods   []string `json:"methods"`
}

// CLIUnit is one registered unit.
type CLIUnit struct {
	Path     string    `json:"path"`
	Language string    `json:"language"`
	Hash     string    `json:"hash"`
	LoadedAt time.Time `json:"loaded_at"`
	Types    []string  `json:"types"`
}

// typeToCLI converts a Descriptor to a CLIType.
func typeToCLI(d *plugscan.Descriptor) CLIType {
	return CLIType{
		Name:            d.Name,
		Kind:            d.Kind,
		Instantiable:    d.Instantiable,
		Abstract:        d.Abstract,
		Parent:          d.Parent,
		Ancestors:       d.Ancestors,
		Capabilities:    d.Capabilities,
		Methods:         d.Methods,
		RequiredMethods: d.RequiredMethods,
		File:            d.DefiningPath,
		Language:        d.Language,
	}
}

func typesToCLI(ds []*plugscan.Descriptor) []CLIType {
	out := make([]CLIType, 0, len(ds))
	for _, d := range ds {
		out = append(out, typeToCLI(d))
	}
	return out
}

func unitsToCLI(us []plugscan.LoadedUnit) []CLIUnit {
	out := make([]CLIUnit, 0, len(us))
	for _, u := range us {
		types := u.Types
		if types == nil {
			types = []string{}
		}
		out = append(out, CLIUnit{Path: u.Path, Language: u.Language, Hash: u.Hash, LoadedAt: u.LoadedAt, Types: types})
	}
	return out
}
