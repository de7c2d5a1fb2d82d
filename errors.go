package sqldict

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ErrorCode categorizes the failures a Dict reports.
type ErrorCode string

const (
	// CodeKeyNotFound indicates the key has no Entry in the Store (or overlay,
	// for reads).
	CodeKeyNotFound ErrorCode = "KEY_NOT_FOUND"

	// CodeInvalidConfiguration indicates Open was given an unusable Config.
	CodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"

	// CodeInvalidArgument indicates a bad transaction mode, an empty key, a
	// value the codec cannot encode, or an unusable relocation destination.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// CodeStorageFault indicates the engine failed, or stored bytes could not
	// be decoded.
	CodeStorageFault ErrorCode = "STORAGE_FAULT"

	// CodeClosed indicates use of a Dict, or a Tx, that is already closed.
	CodeClosed ErrorCode = "CLOSED"

	// CodeTxActive indicates a Dict method was called while one of its
	// transactions is open.
	CodeTxActive ErrorCode = "TX_ACTIVE"
)

// Error is returned by every Dict operation that fails.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the failing operation, e.g. "get" or "relocate".
	Op string

	// Key is the affected key, when there is one.
	Key string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Sentinels for errors.Is. They match any *Error with the same Code.
var (
	ErrKeyNotFound          = &Error{Code: CodeKeyNotFound}
	ErrInvalidConfiguration = &Error{Code: CodeInvalidConfiguration}
	ErrInvalidArgument      = &Error{Code: CodeInvalidArgument}
	ErrStorageFault         = &Error{Code: CodeStorageFault}
	ErrClosed               = &Error{Code: CodeClosed}
	ErrTxActive             = &Error{Code: CodeTxActive}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Op != "" {
		b.WriteString(" (" + e.Op)
		if e.Key != "" {
			fmt.Fprintf(&b, " %q", e.Key)
		}
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches target if it is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the Code of the first *Error in err's chain, or "" if there
// is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsKeyNotFound returns true if err reports a missing key.
// Uses errors.As to handle wrapped errors.
func IsKeyNotFound(err error) bool { return CodeOf(err) == CodeKeyNotFound }

// IsStorageFault returns true if err reports an engine or decode failure.
func IsStorageFault(err error) bool { return CodeOf(err) == CodeStorageFault }

func keyNotFound(op, key string) *Error {
	return &Error{Code: CodeKeyNotFound, Op: op, Key: key}
}

func invalidConfig(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidConfiguration, Op: "open", Message: fmt.Sprintf(format, args...)}
}

func invalidArgument(op, key, msg string, err error) *Error {
	return &Error{Code: CodeInvalidArgument, Op: op, Key: key, Message: msg, Err: err}
}

func closedErr(op, msg string) *Error {
	return &Error{Code: CodeClosed, Op: op, Message: msg}
}

func txActive(op string) *Error {
	return &Error{Code: CodeTxActive, Op: op, Message: "a transaction is open on this dict; use the Tx instead"}
}

// fault wraps an engine or decode error as a STORAGE_FAULT, counts it, and
// logs it. Cancellation is expected and logged at debug only.
func fault(logger *log.Entry, op, key string, err error) *Error {
	storageFaultsTotal.WithLabelValues(op).Inc()

	entry := logger.WithFields(log.Fields{"op": op, "err": err})
	if key != "" {
		entry = entry.WithField("key", key)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		entry.Debug("operation cancelled")
	} else {
		entry.Error("storage fault")
	}
	return &Error{Code: CodeStorageFault, Op: op, Key: key, Err: err}
}
