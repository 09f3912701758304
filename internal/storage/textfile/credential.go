package textfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/flatshop/internal/domain/validate"
)

// Credential is a "username,password" line of the users or admins file.
// Passwords are stored as plain text, as the file format has always done.
type Credential struct {
	Username string
	Password string
}

func checkCredential(c Credential) error {
	if err := validate.NonEmptyText("username", c.Username); err != nil {
		return err
	}
	// The password is the rest of the line, so only line breaks matter.
	if strings.ContainsAny(c.Password, "\r\n") {
		return &validate.Error{Field: "password", Reason: "contains a line break"}
	}
	return nil
}

// EncodeCredentials writes one "username,password" line per credential.
func EncodeCredentials(w io.Writer, creds []Credential) error {
	bw := bufio.NewWriter(w)
	for _, c := range creds {
		if err := checkCredential(c); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(bw, "%s,%s\n", c.Username, c.Password); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DecodeCredentials reads a credentials file. The first comma separates the
// username from the password.
func DecodeCredentials(r io.Reader) ([]Credential, error) {
	return decodeCredentials(newLineScanner(r, ""))
}

func decodeCredentials(ls *lineScanner) ([]Credential, error) {
	var creds []Credential
	for ls.nextRecord() {
		user, pass, ok := strings.Cut(ls.text, ",")
		if !ok {
			return nil, ls.errorf("expected username,password")
		}
		creds = append(creds, Credential{Username: user, Password: pass})
	}
	if err := ls.err(); err != nil {
		return nil, err
	}
	return creds, nil
}

// LoadCredentials reads the credentials file at path.
func LoadCredentials(path string) ([]Credential, error) {
	var creds []Credential
	err := load(path, func(ls *lineScanner) (err error) {
		creds, err = decodeCredentials(ls)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "load credentials")
	}
	return creds, nil
}

// SaveCredentials atomically rewrites the credentials file.
func SaveCredentials(creds []Credential, path string) error {
	if err := save(path, func(w io.Writer) error {
		return EncodeCredentials(w, creds)
	}); err != nil {
		return errors.Wrap(err, "save credentials")
	}
	return nil
}

// AppendCredential adds one registration to the credentials file.
func AppendCredential(c Credential, path string) error {
	return appendLine(path, func(w io.Writer) error {
		return EncodeCredentials(w, []Credential{c})
	})
}
