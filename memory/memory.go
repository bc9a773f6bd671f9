package memory

import (
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

// Reader is the read side of a job memory. Placeholder resolution only needs
// this view.
type Reader interface {
	// TaskInput returns the recorded input for key and whether it exists.
	TaskInput(key string) (core.TaskInput, bool)
	// TaskOutput returns the recorded output for key and whether it exists.
	TaskOutput(key string) (core.TaskOutput, bool)
}

// Memory records task inputs and outputs for a single job.
type Memory interface {
	Reader
	AddTaskInput(key string, input core.TaskInput)
	AddTaskOutput(key string, output core.TaskOutput)
}

// Compile-time interface check.
var _ Memory = (*InMemoryStore)(nil)

// InMemoryStore is the process-local Memory implementation.
//
// Concurrency: protected by RWMutex. Keys keep their first insertion position
// when overwritten.
type InMemoryStore struct {
	mu          sync.RWMutex
	inputs      map[string]core.TaskInput
	outputs     map[string]core.TaskOutput
	inputOrder  []string
	outputOrder []string
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		inputs:  make(map[string]core.TaskInput),
		outputs: make(map[string]core.TaskOutput),
	}
}

// AddTaskInput records input under key, replacing any previous value.
func (m *InMemoryStore) AddTaskInput(key string, input core.TaskInput) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.inputs[key]; !exists {
		m.inputOrder = append(m.inputOrder, key)
	}
	m.inputs[key] = input
}

// AddTaskOutput records output under key, replacing any previous value.
func (m *InMemoryStore) AddTaskOutput(key string, output core.TaskOutput) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.outputs[key]; !exists {
		m.outputOrder = append(m.outputOrder, key)
	}
	m.outputs[key] = output
}

// TaskInput returns the recorded input for key. A missing key is a normal
// state (the task has not run yet), so it is reported with ok=false.
func (m *InMemoryStore) TaskInput(key string) (core.TaskInput, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	in, ok := m.inputs[key]

	return in, ok
}

// TaskOutput returns the recorded output for key.
func (m *InMemoryStore) TaskOutput(key string) (core.TaskOutput, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out, ok := m.outputs[key]

	return out, ok
}

// Len returns the number of recorded inputs and outputs.
func (m *InMemoryStore) Len() (inputs, outputs int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.inputs), len(m.outputs)
}

// Entry is one task's record in a Snapshot. HasOutput is false for tasks that
// started but did not finish.
type Entry struct {
	Name      string
	Input     core.TaskInput
	Output    core.TaskOutput
	HasOutput bool
}

// Snapshot returns every recorded task in input insertion order. The returned
// slice is a copy and may be modified freely.
func (m *InMemoryStore) Snapshot() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, 0, len(m.inputOrder))
	seen := make(map[string]struct{}, len(m.inputOrder))

	for _, key := range m.inputOrder {
		out, ok := m.outputs[key]
		entries = append(entries, Entry{Name: key, Input: m.inputs[key], Output: out, HasOutput: ok})
		seen[key] = struct{}{}
	}

	// Outputs recorded without an input (direct AddTaskOutput use) go last.
	for _, key := range m.outputOrder {
		if _, ok := seen[key]; ok {
			continue
		}
		entries = append(entries, Entry{Name: key, Output: m.outputs[key], HasOutput: true})
	}

	return entries
}
