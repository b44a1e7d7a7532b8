// Package tools exposes the engine's capabilities to the agent as named tools
// with JSON Schema parameters.
package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/kaptinlin/jsonrepair"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
	"github.com/Victoriakaey/troubador2/internal/core/ports"
)

// Set is a name-indexed collection of tools.
type Set struct {
	tools  []ports.Tool
	byName map[string]ports.Tool
}

// NewSet indexes tools by name. Names must be unique.
func NewSet(tools ...ports.Tool) (*Set, error) {
	s := &Set{byName: make(map[string]ports.Tool, len(tools))}
	for _, t := range tools {
		name := t.Spec().Name
		if name == "" {
			return nil, fmt.Errorf("tools: tool without a name")
		}
		if _, dup := s.byName[name]; dup {
			return nil, fmt.Errorf("tools: duplicate tool %q", name)
		}
		s.byName[name] = t
		s.tools = append(s.tools, t)
	}
	return s, nil
}

// Get looks a tool up by name.
func (s *Set) Get(name string) (ports.Tool, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// Specs returns the tool descriptions in registration order.
func (s *Set) Specs() []domain.ToolSpec {
	specs := make([]domain.ToolSpec, 0, len(s.tools))
	for _, t := range s.tools {
		specs = append(specs, t.Spec())
	}
	return specs
}

// Names returns the sorted tool names.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String lists the tool names, comma separated.
func (s *Set) String() string {
	return strings.Join(s.Names(), ", ")
}

// schemaFor renders the JSON Schema of T.
func schemaFor[T any]() (json.RawMessage, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("tools: schema: %w", err)
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("tools: schema: %w", err)
	}
	return b, nil
}

// decodeArguments unmarshals model-produced arguments into v. Arguments with
// a syntax error are repaired once before giving up. Empty arguments decode
// as an empty object.
func decodeArguments(arguments string, v any) error {
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}
	err := json.Unmarshal([]byte(arguments), v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); !ok {
		return err
	}
	fixed, repairErr := jsonrepair.JSONRepair(arguments)
	if repairErr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), v)
}
