// Package harness runs YAML scenarios against a real sqldict.Dict and checks
// the outcome of every step.
//
// # Scenario Format
//
//	name: overlay_hazard
//	description: "The overlay shadows a second writer until sync"
//	target: file          # memory (default) or file
//	writeback: true
//	steps:
//	  - op: set
//	    key: a
//	    value: 1
//	  - op: external_set  # a second handle writes straight to the store
//	    key: a
//	    value: 2
//	  - op: get
//	    key: a
//	    expect: { value: 1 }
//	  - op: transaction
//	    mode: immediate
//	    fail: true        # abort after the nested steps, forcing a rollback
//	    steps:
//	      - op: set
//	        key: x
//	        value: 1
//	assertions:
//	  - type: final_state
//	    entries: { a: 1 }
//
// Operations: set, get, delete, contains, len, glob, sync, clear_cache,
// vacuum, relocate (dest: memory|file), external_set and transaction. Inside
// a transaction only set, get, delete, contains, len and glob are allowed.
//
// An expect block may check value, values, count, found, or error, where
// error is the lower-cased error code such as key_not_found. A step without
// an expect block must succeed. The run stops at the first step that does
// not meet its expectation.
//
// # Assertion Types
//
//   - trace_contains: an op (and optionally key) appears in the trace
//   - trace_count: an op appears exactly count times
//   - final_state: the Store holds exactly the given entries
//
// # Deterministic Testing
//
// Trace sequence numbers come from testutil.SequenceClock and database files
// are named by testutil.PathGenerator, so a scenario produces the same trace
// on every run. RunWithGolden compares that trace in canonical JSON against
// testdata/golden/<name>.golden.
package harness
