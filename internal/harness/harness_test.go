package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "file name and scenario name differ")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/relocation.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := (&TraceSnapshot{ScenarioName: "x", Trace: first.Trace, Final: first.Final}).Marshal()
	require.NoError(t, err)
	b, err := (&TraceSnapshot{ScenarioName: "x", Trace: second.Trace, Final: second.Final}).Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_StopsAtFirstMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "second step expects the wrong value",
		Target:      TargetMemory,
		Steps: []Step{
			{Op: OpSet, Key: "a", Value: 1},
			{Op: OpGet, Key: "a", Expect: &Expect{Value: 2}},
			{Op: OpSet, Key: "b", Value: 2},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 1 (get): value: expected 2, got 1")
	assert.Len(t, result.Trace, 2, "the third step never ran")
	assert.Equal(t, map[string]any{"a": 1.0}, result.Final)
}

func TestRun_UnexpectedError(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected",
		Description: "get of a missing key without an expectation",
		Target:      TargetMemory,
		Steps:       []Step{{Op: OpGet, Key: "missing"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "unexpected error")
	assert.Equal(t, "key_not_found", result.Trace[0].Error)
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_error",
		Description: "set succeeds although an error is expected",
		Target:      TargetMemory,
		Steps:       []Step{{Op: OpSet, Key: "a", Value: 1, Expect: &Expect{Error: "key_not_found"}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error key_not_found, got success")
}

func TestRun_MismatchInsideTransactionRollsBack(t *testing.T) {
	found := true
	scenario := &Scenario{
		Name:        "tx_mismatch",
		Description: "a failed nested expectation aborts the transaction",
		Target:      TargetMemory,
		Steps: []Step{
			{Op: OpTransaction, Steps: []Step{
				{Op: OpSet, Key: "a", Value: 1},
				{Op: OpContains, Key: "zzz", Expect: &Expect{Found: &found}},
			}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, "rolled_back", result.Trace[2].Result)
	assert.Empty(t, result.Final)
}

func TestRun_ExternalSetNeedsFile(t *testing.T) {
	scenario := &Scenario{
		Name:        "external_memory",
		Description: "external writers cannot reach a private memory database",
		Target:      TargetMemory,
		Steps:       []Step{{Op: OpExternalSet, Key: "a", Value: 1, Expect: &Expect{Error: "error"}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_BoundedCache(t *testing.T) {
	count := 3
	scenario := &Scenario{
		Name:        "bounded",
		Description: "evicted entries are still in the store",
		Target:      TargetFile,
		Writeback:   true,
		CacheSize:   1,
		Steps: []Step{
			{Op: OpSet, Key: "a", Value: 1},
			{Op: OpSet, Key: "b", Value: 2},
			{Op: OpSet, Key: "c", Value: 3},
			{Op: OpGet, Key: "a", Expect: &Expect{Value: 1}},
			{Op: OpLen, Expect: &Expect{Count: &count}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
