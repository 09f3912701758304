package textfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// lineScanner reads newline-terminated records and tracks the line number
// for error reporting. Lines have no length limit, so anything the encoders
// write can be read back.
type lineScanner struct {
	r       *bufio.Reader
	path    string
	line    int
	text    string
	readErr error
}

func newLineScanner(r io.Reader, path string) *lineScanner {
	return &lineScanner{r: bufio.NewReaderSize(r, 64*1024), path: path}
}

// next advances to the next line, blank or not.
func (ls *lineScanner) next() bool {
	if ls.readErr != nil {
		return false
	}
	text, err := ls.r.ReadString('\n')
	switch {
	case err == io.EOF && text == "":
		return false
	case err != nil && err != io.EOF:
		ls.readErr = err
		return false
	}
	ls.line++
	ls.text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
	return true
}

// nextRecord advances to the next non-blank line.
func (ls *lineScanner) nextRecord() bool {
	for ls.next() {
		if strings.TrimSpace(ls.text) != "" {
			return true
		}
	}
	return false
}

func (ls *lineScanner) err() error {
	if ls.readErr != nil {
		return &IOError{Op: "read", Path: ls.path, Err: ls.readErr}
	}
	return nil
}

func (ls *lineScanner) errorf(format string, args ...any) *ParseError {
	return &ParseError{Path: ls.path, Line: ls.line, Reason: fmt.Sprintf(format, args...)}
}

func (ls *lineScanner) wrap(err error, format string, args ...any) *ParseError {
	pe := ls.errorf(format, args...)
	pe.Err = err
	return pe
}

// fields splits the current line on sep and checks the field count. want
// is the exact count, or the minimum when atLeast is set.
func (ls *lineScanner) fields(sep string, want int, atLeast bool) ([]string, error) {
	f := strings.Split(ls.text, sep)
	switch {
	case atLeast && len(f) < want:
		return nil, ls.errorf("expected at least %d fields, got %d", want, len(f))
	case !atLeast && len(f) != want:
		return nil, ls.errorf("expected %d fields, got %d", want, len(f))
	}
	return f, nil
}

func (ls *lineScanner) parseInt(field, s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, ls.wrap(err, "bad %s %q", field, s)
	}
	return v, nil
}

func (ls *lineScanner) parseNonNegative(field, s string) (int, error) {
	v, err := ls.parseInt(field, s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, ls.errorf("negative %s %d", field, v)
	}
	return v, nil
}

func (ls *lineScanner) parseDecimal(field, s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, ls.wrap(err, "bad %s %q", field, s)
	}
	return v, nil
}
