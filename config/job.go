package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Job modes.
const (
	ModeSequential = "sequential"
	ModeConcurrent = "concurrent"
)

// Task kinds understood by the CLI.
const (
	KindTextGen  = "textgen"
	KindAgent    = "agent"
	KindRetrieve = "retrieve"
)

// JobFile describes a job run by the taskmesh CLI.
//
//	mode: sequential
//	tasks:
//	  - name: outline
//	    kind: textgen
//	    input: "Outline an essay about {{root}}"
//	  - name: essay
//	    kind: agent
//	    input: "Expand this outline: {{outline.output}}"
//	    tools: [clock]
type JobFile struct {
	Mode  string     `yaml:"mode"`
	Tasks []TaskSpec `yaml:"tasks"`
}

// TaskSpec is a single task entry of a JobFile.
type TaskSpec struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	// Input is the placeholder template. Sequential jobs only.
	Input        string   `yaml:"input"`
	SystemPrompt string   `yaml:"system_prompt"`
	MaxTurns     int      `yaml:"max_turns"`
	Tools        []string `yaml:"tools"`
	// Documents seed the in-memory collection of a retrieve task.
	Documents []string `yaml:"documents"`
	// Table switches a retrieve task to pgvector. Where is an optional SQL
	// filter without parameters.
	Table string `yaml:"table"`
	Where string `yaml:"where"`
	Limit int    `yaml:"limit"`
}

// LoadJob reads and validates a job file.
func LoadJob(path string) (*JobFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	job, err := ParseJob(data)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", path, err)
	}

	return job, nil
}

// ParseJob decodes and validates a YAML job definition. Unknown fields are
// rejected.
func ParseJob(data []byte) (*JobFile, error) {
	var job JobFile

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&job); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	if job.Mode == "" {
		job.Mode = ModeSequential
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return &job, nil
}

// Validate checks the mode, task names and per-kind settings.
func (j *JobFile) Validate() error {
	if j.Mode != ModeSequential && j.Mode != ModeConcurrent {
		return fmt.Errorf("mode %q must be %s or %s", j.Mode, ModeSequential, ModeConcurrent)
	}

	if len(j.Tasks) == 0 {
		return errors.New("at least one task is required")
	}

	var errs []error

	seen := make(map[string]struct{}, len(j.Tasks))

	for i, t := range j.Tasks {
		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, fmt.Errorf("tasks[%d]: name is required", i))
			continue
		}

		if _, dup := seen[t.Name]; dup {
			errs = append(errs, fmt.Errorf("tasks[%d]: duplicate name %q", i, t.Name))
		}
		seen[t.Name] = struct{}{}

		switch t.Kind {
		case KindTextGen:
		case KindAgent:
			if t.MaxTurns < 0 {
				errs = append(errs, fmt.Errorf("tasks[%d]: max_turns must be >= 0", i))
			}
		case KindRetrieve:
			if (len(t.Documents) == 0) == (t.Table == "") {
				errs = append(errs, fmt.Errorf("tasks[%d]: retrieve needs either documents or a table", i))
			}
		default:
			errs = append(errs, fmt.Errorf("tasks[%d]: unknown kind %q", i, t.Kind))
		}

		if j.Mode == ModeConcurrent && t.Input != "" {
			errs = append(errs, fmt.Errorf("tasks[%d]: input templates are not supported in concurrent mode", i))
		}
	}

	return errors.Join(errs...)
}
