package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of Dict operations with expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Target is "memory" (the default) or "file".
	Target string `yaml:"target,omitempty"`

	// Writeback enables the Dict's overlay.
	Writeback bool `yaml:"writeback,omitempty"`

	// CacheSize bounds the overlay. Zero means unbounded.
	CacheSize int `yaml:"cache_size,omitempty"`

	// Steps run in order against one Dict.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operation. Which fields apply depends on Op.
type Step struct {
	Op string `yaml:"op"`

	Key     string `yaml:"key,omitempty"`
	Value   any    `yaml:"value,omitempty"`
	Pattern string `yaml:"pattern,omitempty"`

	// Dest is "memory" or "file" for relocate.
	Dest string `yaml:"dest,omitempty"`

	// Mode, Fail and Steps apply to transaction. Mode defaults to deferred.
	Mode  string `yaml:"mode,omitempty"`
	Fail  bool   `yaml:"fail,omitempty"`
	Steps []Step `yaml:"steps,omitempty"`

	// Expect, if nil, means the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the outcome a step must have. Unset fields are not
// checked.
type Expect struct {
	Value  any    `yaml:"value,omitempty"`
	Values []any  `yaml:"values,omitempty"`
	Count  *int   `yaml:"count,omitempty"`
	Found  *bool  `yaml:"found,omitempty"`
	Error  string `yaml:"error,omitempty"`
}

// Assertion validates the trace or final Store contents.
type Assertion struct {
	// Type is trace_contains, trace_count or final_state.
	Type string `yaml:"type"`

	// Op and Key select trace events (trace_contains, trace_count).
	Op  string `yaml:"op,omitempty"`
	Key string `yaml:"key,omitempty"`

	// Count is the exact number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Entries is the exact Store contents (final_state).
	Entries map[string]any `yaml:"entries,omitempty"`
}

// Operations.
const (
	OpSet         = "set"
	OpGet         = "get"
	OpDelete      = "delete"
	OpContains    = "contains"
	OpLen         = "len"
	OpGlob        = "glob"
	OpSync        = "sync"
	OpClearCache  = "clear_cache"
	OpVacuum      = "vacuum"
	OpRelocate    = "relocate"
	OpExternalSet = "external_set"
	OpTransaction = "transaction"
)

// Targets and relocation destinations.
const (
	TargetMemory = "memory"
	TargetFile   = "file"
)

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// txOps are the operations a Tx supports.
var txOps = map[string]bool{
	OpSet: true, OpGet: true, OpDelete: true, OpContains: true, OpLen: true, OpGlob: true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch s.Target {
	case "":
		s.Target = TargetMemory
	case TargetMemory, TargetFile:
	default:
		return fmt.Errorf("target must be %q or %q, got %q", TargetMemory, TargetFile, s.Target)
	}
	if s.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i := range s.Steps {
		if err := validateStep(fmt.Sprintf("steps[%d]", i), &s.Steps[i], false); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(at string, st *Step, inTx bool) error {
	if st.Op == "" {
		return fmt.Errorf("%s: op is required", at)
	}
	if inTx && !txOps[st.Op] {
		return fmt.Errorf("%s: %s is not allowed inside a transaction", at, st.Op)
	}

	switch st.Op {
	case OpSet, OpExternalSet:
		if st.Key == "" {
			return fmt.Errorf("%s: key is required for %s", at, st.Op)
		}
		if st.Value == nil {
			return fmt.Errorf("%s: value is required for %s", at, st.Op)
		}
	case OpGet, OpDelete, OpContains:
		if st.Key == "" {
			return fmt.Errorf("%s: key is required for %s", at, st.Op)
		}
	case OpGlob:
		if st.Pattern == "" {
			return fmt.Errorf("%s: pattern is required for glob", at)
		}
	case OpRelocate:
		if st.Dest != TargetMemory && st.Dest != TargetFile {
			return fmt.Errorf("%s: dest must be %q or %q", at, TargetMemory, TargetFile)
		}
	case OpTransaction:
		if len(st.Steps) == 0 && !st.Fail {
			return fmt.Errorf("%s: transaction needs steps or fail: true", at)
		}
		for i := range st.Steps {
			if err := validateStep(fmt.Sprintf("%s.steps[%d]", at, i), &st.Steps[i], true); err != nil {
				return err
			}
		}
	case OpLen, OpSync, OpClearCache, OpVacuum:
	default:
		return fmt.Errorf("%s: unknown op %q", at, st.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Entries == nil {
			return fmt.Errorf("assertions[%d]: entries is required for final_state (use {} for empty)", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
