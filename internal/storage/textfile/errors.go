package textfile

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed record. Any ParseError aborts loading of
// the whole file.
type ParseError struct {
	Path   string
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse ")
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteByte(':')
	} else {
		b.WriteString("line ")
	}
	fmt.Fprintf(&b, "%d: %s", e.Line, e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IOError reports a file that could not be read or written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
