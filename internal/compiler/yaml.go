package compiler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/factstore/internal/ir"
)

// LoadFile reads and compiles a spec file. The format is chosen by
// extension: .cue for CUE, .yaml/.yml/.json for YAML (JSON is valid YAML).
func LoadFile(path string) (*ir.FactSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return CompileSpecSource(data, path)
	case ".yaml", ".yml", ".json":
		return CompileSpecYAML(data, path)
	default:
		return nil, fmt.Errorf("unsupported spec format %q (want .cue, .yaml, .yml, or .json)", filepath.Ext(path))
	}
}

// yamlSpecFields are the permitted top-level keys.
var yamlSpecFields = map[string]bool{
	"name":        true,
	"facts":       true,
	"computed":    true,
	"history":     true,
	"persistence": true,
}

// CompileSpecYAML compiles a YAML spec. Mapping order is preserved for facts
// and computed entries, which a plain map decode would lose.
func CompileSpecYAML(data []byte, filename string) (*ir.FactSpec, error) {
	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: parse YAML: %w", filename, err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%s: empty spec", filename)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, yamlError(filename, root, "spec must be a mapping")
	}

	spec := &ir.FactSpec{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]
		field := keyNode.Value
		if !yamlSpecFields[field] {
			return nil, yamlError(filename, keyNode, fmt.Sprintf("unknown field %q", field))
		}

		var err error
		switch field {
		case "name":
			err = valNode.Decode(&spec.Name)
		case "facts":
			spec.Facts, err = yamlFacts(filename, valNode)
		case "computed":
			spec.Computed, err = yamlComputed(filename, valNode)
		case "history":
			spec.History, err = yamlHistory(filename, valNode)
		case "persistence":
			spec.Persistence, err = yamlPersistence(filename, valNode)
		}
		if err != nil {
			return nil, err
		}
	}

	if spec.Name == "" {
		spec.Name = specNameFromFile(filename)
	}
	return spec, nil
}

func yamlFacts(filename string, node *yaml.Node) ([]ir.Fact, error) {
	if node.Kind != yaml.MappingNode {
		return nil, yamlError(filename, node, "facts must be a mapping")
	}
	var facts []ir.Fact
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, valNode := node.Content[i].Value, node.Content[i+1]
		val, err := yamlScalar(valNode)
		if err != nil {
			return nil, yamlError(filename, valNode, fmt.Sprintf("facts.%s: %v", key, err))
		}
		facts = append(facts, ir.Fact{Key: key, Value: val})
	}
	return facts, nil
}

// yamlScalar converts a scalar node to a Value. null maps to nil.
func yamlScalar(node *yaml.Node) (ir.Value, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("facts must be bool, number, or string")
	}
	switch node.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, err
		}
		return ir.Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, err
		}
		return ir.Number(f), nil
	case "!!str":
		return ir.String(node.Value), nil
	default:
		return nil, fmt.Errorf("unsupported YAML tag %s", node.ShortTag())
	}
}

func yamlComputed(filename string, node *yaml.Node) ([]ir.ComputedSpec, error) {
	if node.Kind != yaml.MappingNode {
		return nil, yamlError(filename, node, "computed must be a mapping")
	}
	var computed []ir.ComputedSpec
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, valNode := node.Content[i].Value, node.Content[i+1]
		if valNode.Kind != yaml.ScalarNode || valNode.ShortTag() != "!!str" {
			return nil, yamlError(filename, valNode, fmt.Sprintf("computed.%s: condition must be a string", key))
		}
		computed = append(computed, ir.ComputedSpec{Key: key, Condition: valNode.Value})
	}
	return computed, nil
}

func yamlHistory(filename string, node *yaml.Node) (ir.HistorySpec, error) {
	// Shorthand: history: true
	if node.Kind == yaml.ScalarNode {
		var enabled bool
		if err := node.Decode(&enabled); err != nil {
			return ir.HistorySpec{}, yamlError(filename, node, "history must be a bool or mapping")
		}
		return ir.HistorySpec{Enabled: enabled}, nil
	}

	var raw struct {
		Enabled *bool `yaml:"enabled"`
		Max     int   `yaml:"max"`
	}
	if err := node.Decode(&raw); err != nil {
		return ir.HistorySpec{}, yamlError(filename, node, err.Error())
	}
	h := ir.HistorySpec{Enabled: true, Max: raw.Max}
	if raw.Enabled != nil {
		h.Enabled = *raw.Enabled
	}
	return h, nil
}

func yamlPersistence(filename string, node *yaml.Node) (*ir.PersistenceSpec, error) {
	var raw struct {
		Key      string `yaml:"key"`
		AutoSave bool   `yaml:"auto_save"`
	}
	if err := node.Decode(&raw); err != nil {
		return nil, yamlError(filename, node, err.Error())
	}
	return &ir.PersistenceSpec{Key: raw.Key, AutoSave: raw.AutoSave}, nil
}

func yamlError(filename string, node *yaml.Node, msg string) error {
	return fmt.Errorf("%s:%d:%d: %s", filename, node.Line, node.Column, msg)
}
