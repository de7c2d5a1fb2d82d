package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/roach88/sqldict"
	"github.com/roach88/sqldict/codec"
	"github.com/roach88/sqldict/internal/testutil"
)

// mapping is the surface shared by *sqldict.Dict and *sqldict.Tx.
type mapping interface {
	Get(ctx context.Context, key string) (any, error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
	Contains(ctx context.Context, key string) (bool, error)
	Len(ctx context.Context) (int, error)
	Glob(ctx context.Context, pattern string) ([]any, error)
}

var (
	errAborted  = errors.New("transaction aborted by scenario")
	errMismatch = errors.New("expectation not met")
)

// Harness executes one scenario against one Dict.
type Harness struct {
	dict   *sqldict.Dict[any]
	clock  *testutil.SequenceClock
	paths  *testutil.PathGenerator
	logger *log.Entry
}

// Run executes a scenario and returns the result.
//
// Each run gets a fresh Dict storing values as JSON, in memory or in a file
// under a temporary directory that is removed afterwards. An error is
// returned only if the Dict cannot be set up; failed expectations are
// reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "sqldict-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	quiet := log.New()
	quiet.SetOutput(io.Discard)
	logger := quiet.WithField("scenario", scenario.Name)

	h := &Harness{
		clock:  testutil.NewSequenceClock(),
		paths:  testutil.NewPathGenerator(dir),
		logger: logger,
	}

	cfg := sqldict.Config{
		Writeback: scenario.Writeback,
		CacheSize: scenario.CacheSize,
		Logger:    logger,
	}
	if scenario.Target == TargetFile {
		cfg.Path = h.paths.Next("target")
	} else {
		cfg.Memory = true
	}

	h.dict, err = sqldict.Open(cfg, codec.JSON[any]())
	if err != nil {
		return nil, fmt.Errorf("failed to open dict: %w", err)
	}
	defer h.dict.Close()

	ctx := context.Background()
	result := NewResult()
	h.runSteps(ctx, scenario.Steps, h.dict, false, result)

	if err := h.collectFinal(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// runSteps executes steps until one fails its expectation. It reports
// whether all of them passed.
func (h *Harness) runSteps(ctx context.Context, steps []Step, m mapping, inTx bool, result *Result) bool {
	for i, step := range steps {
		if !h.runStep(ctx, i, step, m, inTx, result) {
			return false
		}
	}
	return true
}

func (h *Harness) runStep(ctx context.Context, i int, step Step, m mapping, inTx bool, result *Result) bool {
	if step.Op == OpTransaction {
		return h.runTransaction(ctx, i, step, result)
	}

	ev := TraceEvent{Op: step.Op, Key: step.Key}
	if inTx {
		ev.Op = "tx." + step.Op
	}

	var out any
	var err error
	switch step.Op {
	case OpSet:
		ev.Args = step.Value
		err = m.Set(ctx, step.Key, step.Value)
	case OpGet:
		out, err = m.Get(ctx, step.Key)
	case OpDelete:
		err = m.Delete(ctx, step.Key)
	case OpContains:
		out, err = m.Contains(ctx, step.Key)
	case OpLen:
		out, err = m.Len(ctx)
	case OpGlob:
		ev.Args = step.Pattern
		var vals []any
		if vals, err = m.Glob(ctx, step.Pattern); err == nil {
			out = vals
		}
	case OpSync:
		err = h.dict.Sync(ctx)
	case OpClearCache:
		h.dict.ClearCache()
	case OpVacuum:
		err = h.dict.Vacuum(ctx)
	case OpRelocate:
		ev.Args = step.Dest
		if err = h.relocate(ctx, step.Dest); err == nil {
			out = step.Dest
		}
	case OpExternalSet:
		ev.Args = step.Value
		err = h.externalSet(ctx, step.Key, step.Value)
	default:
		err = fmt.Errorf("unknown op %q", step.Op)
	}

	if err != nil {
		out = nil
	}
	ev.Seq = h.clock.Next()
	ev.Result = out
	ev.Error = errorName(err)
	result.AddTrace(ev)

	h.logger.WithFields(log.Fields{"step": i, "op": ev.Op, "key": step.Key, "err": err}).Debug("step executed")

	if msg := checkExpect(step.Expect, out, err); msg != "" {
		result.AddError(fmt.Sprintf("step %d (%s): %s", i, ev.Op, msg))
		return false
	}
	return true
}

func (h *Harness) runTransaction(ctx context.Context, i int, step Step, result *Result) bool {
	modeName := step.Mode
	if modeName == "" {
		modeName = "deferred"
	}

	nestedOK := true
	mode, err := sqldict.ParseTxMode(modeName)
	if err == nil {
		err = h.dict.Transaction(ctx, mode, func(tx *sqldict.Tx[any]) error {
			if !h.runSteps(ctx, step.Steps, tx, true, result) {
				nestedOK = false
				return errMismatch
			}
			if step.Fail {
				return errAborted
			}
			return nil
		})
	}

	ev := TraceEvent{Seq: h.clock.Next(), Op: OpTransaction, Args: modeName}
	switch {
	case err == nil:
		ev.Result = "committed"
	case errors.Is(err, errAborted), errors.Is(err, errMismatch):
		ev.Result = "rolled_back"
		err = nil
	default:
		ev.Error = errorName(err)
	}
	result.AddTrace(ev)

	if !nestedOK {
		return false
	}
	if msg := checkExpect(step.Expect, nil, err); msg != "" {
		result.AddError(fmt.Sprintf("step %d (%s): %s", i, OpTransaction, msg))
		return false
	}
	return true
}

func (h *Harness) relocate(ctx context.Context, dest string) error {
	d := sqldict.Memory()
	if dest == TargetFile {
		d = sqldict.File(h.paths.Next("relocate"))
	}
	return h.dict.Relocate(ctx, d, nil)
}

// externalSet writes key through a second handle on the same file, as
// another process would.
func (h *Harness) externalSet(ctx context.Context, key string, v any) error {
	loc := h.dict.Location()
	if loc == ":memory:" {
		return fmt.Errorf("external_set needs a file-backed dict, current location is %s", loc)
	}
	other, err := sqldict.Open(sqldict.Config{Path: loc, Logger: h.logger}, codec.JSON[any]())
	if err != nil {
		return err
	}
	defer other.Close()
	return other.Set(ctx, key, v)
}

func (h *Harness) collectFinal(ctx context.Context, result *Result) error {
	for e, err := range h.dict.Items(ctx) {
		if err != nil {
			return err
		}
		result.Final[e.Key] = e.Value
	}
	return nil
}

// errorName is the lower-cased sqldict error code of err, "error" for any
// other failure, or "" for nil.
func errorName(err error) string {
	if err == nil {
		return ""
	}
	if code := sqldict.CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}

// checkExpect returns a failure message, or "" if out and err satisfy exp.
func checkExpect(exp *Expect, out any, err error) string {
	if exp == nil || exp.Error == "" {
		if err != nil {
			return fmt.Sprintf("unexpected error: %v", err)
		}
	}
	if exp == nil {
		return ""
	}

	if exp.Error != "" {
		if err == nil {
			return fmt.Sprintf("expected error %s, got success", exp.Error)
		}
		if got := errorName(err); got != exp.Error {
			return fmt.Sprintf("expected error %s, got %s (%v)", exp.Error, got, err)
		}
		return ""
	}

	if exp.Value != nil && !valuesEqual(exp.Value, out) {
		return fmt.Sprintf("value: expected %v, got %v", exp.Value, out)
	}
	if exp.Values != nil && !valuesEqual(exp.Values, out) {
		return fmt.Sprintf("values: expected %v, got %v", exp.Values, out)
	}
	if exp.Count != nil {
		if n, ok := out.(int); !ok || n != *exp.Count {
			return fmt.Sprintf("count: expected %d, got %v", *exp.Count, out)
		}
	}
	if exp.Found != nil {
		if b, ok := out.(bool); !ok || b != *exp.Found {
			return fmt.Sprintf("found: expected %t, got %v", *exp.Found, out)
		}
	}
	return ""
}
