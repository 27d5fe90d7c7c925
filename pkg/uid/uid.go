// Package uid 定義了 widgetsync 中使用的唯一識別碼
//
// Identifiers are process-unique and strictly increasing. They name widgets,
// updates and events, and their order is the delivery order of updates and
// the dedup cutoff of events.
package uid

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// ID is a process-unique, totally ordered identifier.
type ID uint64

// Invalid means "no identifier" and compares less than every created ID.
const Invalid ID = 0

const prefix = "#"

var next atomic.Uint64

// New returns an identifier strictly greater than every identifier created
// before it in this process.
func New() ID {
	return ID(next.Add(1))
}

// FormatError is returned by Parse for malformed input.
type FormatError struct {
	Input string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("uid: malformed identifier %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("uid: malformed identifier %q", e.Input)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Parse reconstructs an identifier from its canonical form "#<n>".
func Parse(s string) (ID, error) {
	if !strings.HasPrefix(s, prefix) {
		return Invalid, &FormatError{Input: s}
	}
	n, err := strconv.ParseUint(s[len(prefix):], 10, 64)
	if err != nil {
		return Invalid, &FormatError{Input: s, Err: err}
	}
	if n == 0 {
		return Invalid, &FormatError{Input: s}
	}
	return ID(n), nil
}

// MustParse is like Parse but panics on malformed input. Intended for tests
// and constants.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsValid reports whether id was produced by New or Parse.
func (id ID) IsValid() bool {
	return id != Invalid
}

// Compare returns -1, 0 or +1.
func (id ID) Compare(other ID) int {
	switch {
	case id < other:
		return -1
	case id > other:
		return 1
	default:
		return 0
	}
}

func (id ID) String() string {
	if id == Invalid {
		return prefix + "?"
	}
	return prefix + strconv.FormatUint(uint64(id), 10)
}

// MarshalText encodes the identifier in its canonical form, so IDs appear as
// JSON strings.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText accepts the canonical form. "#?" decodes to Invalid.
func (id *ID) UnmarshalText(text []byte) error {
	s := string(text)
	if s == prefix+"?" {
		*id = Invalid
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
