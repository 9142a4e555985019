package domain

import (
	"fmt"
	"strings"
)

// Field - где искать (поле каталога NLI)
type Field string

const (
	FieldAny          Field = "any"
	FieldTitle        Field = "title"
	FieldDescription  Field = "desc"
	FieldCreator      Field = "creator"
	FieldSubject      Field = "subject"
	FieldStartDate    Field = "start_date"
	FieldEndDate      Field = "end_date"
	FieldSystemNumber Field = "system_number"
	FieldShelfmark    Field = "shelfmark"
	FieldPublisher    Field = "publisher"
	FieldLanguage     Field = "language"
)

var allFields = []Field{
	FieldAny, FieldTitle, FieldDescription, FieldCreator, FieldSubject,
	FieldStartDate, FieldEndDate, FieldSystemNumber, FieldShelfmark,
	FieldPublisher, FieldLanguage,
}

func (f Field) IsValid() bool {
	for _, known := range allFields {
		if f == known {
			return true
		}
	}
	return false
}

// IsSupported reports whether the remote API currently accepts f as a filter.
// Date ranges and language are reserved but rejected upstream.
func (f Field) IsSupported() bool {
	switch f {
	case FieldStartDate, FieldEndDate, FieldLanguage:
		return false
	}
	return f.IsValid()
}

func (f Field) String() string { return string(f) }

// ParseField accepts the wire name ("desc") as well as "description".
func ParseField(s string) (Field, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "description" {
		return FieldDescription, nil
	}
	f := Field(s)
	if !f.IsValid() {
		return "", fmt.Errorf("%w: unknown field %q", ErrInvalidArgument, s)
	}
	return f, nil
}

type Match string

const (
	Contains Match = "contains"
	Exact    Match = "exact"
)

func (m Match) IsValid() bool {
	return m == Contains || m == Exact
}

func (m Match) String() string { return string(m) }

func ParseMatch(s string) (Match, error) {
	m := Match(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: unknown match mode %q", ErrInvalidArgument, s)
	}
	return m, nil
}
