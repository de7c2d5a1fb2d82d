package harness

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/sqldict/codec"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s", ev.Seq, ev.Op)
			if ev.Key != "" {
				fmt.Fprintf(&buf, " %s", ev.Key)
			}
			if ev.Error != "" {
				fmt.Fprintf(&buf, " -> %s", ev.Error)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

func matchesEvent(ev TraceEvent, a Assertion) bool {
	return ev.Op == a.Op && (a.Key == "" || ev.Key == a.Key)
}

// assertTraceContains checks that some event has the assertion's op (and
// key, if given).
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if matchesEvent(ev, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describeSelector(a),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceCount checks if the op appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if matchesEvent(ev, a) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s exactly %d times", describeSelector(a), a.Count),
			Actual:   fmt.Sprintf("found %d times", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks that the Store held exactly the expected entries.
func assertFinalState(final map[string]any, a Assertion) error {
	var problems []string
	for key, want := range a.Entries {
		got, ok := final[key]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing %q", key))
			continue
		}
		if !valuesEqual(want, got) {
			problems = append(problems, fmt.Sprintf("%q = %v, want %v", key, got, want))
		}
	}
	for key := range final {
		if _, ok := a.Entries[key]; !ok {
			problems = append(problems, fmt.Sprintf("unexpected %q", key))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("%d entries: %v", len(a.Entries), a.Entries),
		Actual:   strings.Join(problems, "; "),
	}
}

func describeSelector(a Assertion) string {
	if a.Key != "" {
		return fmt.Sprintf("op %s on key %q", a.Op, a.Key)
	}
	return "op " + a.Op
}

// valuesEqual compares values by their canonical JSON form, so that an int
// parsed from YAML equals the float64 a JSON codec decodes.
func valuesEqual(expected, actual any) bool {
	e, err := codec.MarshalCanonical(expected)
	if err != nil {
		return false
	}
	a, err := codec.MarshalCanonical(actual)
	if err != nil {
		return false
	}
	return bytes.Equal(e, a)
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(result.Final, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
