// Package validate holds input checks shared by the catalog, the ledger and
// the text codec.
package validate

import (
	"fmt"
	"strings"
)

// Reserved lists the characters that delimit fields and records in the data
// files. Free-text fields must not contain any of them: the file formats have
// no quoting, so such a value could not be read back.
const Reserved = ",;\r\n"

// Error reports a rejected input field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Text checks a free-text field for reserved delimiter characters.
func Text(field, value string) error {
	if i := strings.IndexAny(value, Reserved); i >= 0 {
		return &Error{Field: field, Reason: fmt.Sprintf("contains reserved character %q", value[i])}
	}
	return nil
}

// NonEmptyText is Text that also rejects blank values.
func NonEmptyText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &Error{Field: field, Reason: "must not be empty"}
	}
	return Text(field, value)
}
