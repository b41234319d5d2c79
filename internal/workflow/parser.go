package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadWorkflows loads one or more workflows from a file. Files ending in
// .json hold a single workflow; anything else is read as YAML and may contain
// multiple documents separated by `---`. Empty documents are ignored.
func LoadWorkflows(path string) ([]Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		wf, err := DecodeJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return []Workflow{wf}, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	var wfs []Workflow
	for {
		var wf Workflow
		if err := dec.Decode(&wf); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		// skip completely empty docs
		if wf.Name == "" && len(wf.Steps) == 0 {
			continue
		}
		wfs = append(wfs, wf)
	}

	if len(wfs) == 0 {
		return nil, fmt.Errorf("no workflows found in %s", path)
	}
	return wfs, nil
}

// DecodeJSON decodes a workflow document. Numbers in params keep their
// literal text.
func DecodeJSON(data []byte) (Workflow, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var wf Workflow
	if err := dec.Decode(&wf); err != nil {
		return Workflow{}, err
	}
	return wf, nil
}

// EncodeJSON renders the workflow as indented JSON, the template format.
func EncodeJSON(wf Workflow) ([]byte, error) {
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// SaveJSON writes the workflow as a JSON template.
func SaveJSON(path string, wf Workflow) error {
	data, err := EncodeJSON(wf)
	if err != nil {
		return fmt.Errorf("encode workflow: %w", err)
	}
	return writeFile(path, data)
}

// SaveYAML writes the workflow as a single YAML document.
func SaveYAML(path string, wf Workflow) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(wf); err != nil {
		return fmt.Errorf("encode workflow: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode workflow: %w", err)
	}
	return writeFile(path, buf.Bytes())
}

// SaveAll writes several workflows. YAML files get one document per
// workflow; JSON files hold exactly one workflow.
func SaveAll(path string, wfs []Workflow) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if len(wfs) != 1 {
			return fmt.Errorf("a JSON template holds one workflow, got %d", len(wfs))
		}
		return SaveJSON(path, wfs[0])
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, wf := range wfs {
		if err := enc.Encode(wf); err != nil {
			return fmt.Errorf("encode workflow %s: %w", wf.Name, err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode workflows: %w", err)
	}
	return writeFile(path, buf.Bytes())
}

// Save picks the encoding from the file extension.
func Save(path string, wf Workflow) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return SaveJSON(path, wf)
	}
	return SaveYAML(path, wf)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}
