package domain

import (
	"fmt"
	"strings"
)

const (
	andSeparator = ",AND;"
	orSeparator  = ",OR;"
)

// Clause - одно условие поиска: поле, режим совпадения, текст.
type Clause struct {
	Text  string
	Field Field
	Match Match
}

type ClauseOption func(*Clause)

// In selects the catalogue field to search. Default is FieldAny.
func In(f Field) ClauseOption {
	return func(c *Clause) { c.Field = f }
}

// WithMatch selects the match mode. Default is Contains.
func WithMatch(m Match) ClauseOption {
	return func(c *Clause) { c.Match = m }
}

func NewClause(text string, opts ...ClauseOption) (Clause, error) {
	c := Clause{Text: text, Field: FieldAny, Match: Contains}
	for _, opt := range opts {
		opt(&c)
	}
	if err := c.Validate(); err != nil {
		return Clause{}, err
	}
	return c, nil
}

func (c Clause) Validate() error {
	if !c.Field.IsValid() {
		return fmt.Errorf("%w: unknown field %q", ErrInvalidArgument, c.Field)
	}
	if !c.Field.IsSupported() {
		return fmt.Errorf("%w: %s", ErrUnsupportedField, c.Field)
	}
	if !c.Match.IsValid() {
		return fmt.Errorf("%w: unknown match mode %q", ErrInvalidArgument, c.Match)
	}
	return nil
}

// String renders "<field>,<match>,<text>". Text goes out unescaped, so a
// text containing ",AND;" or ",OR;" will change the meaning of the query.
func (c Clause) String() string {
	return c.Field.String() + "," + c.Match.String() + "," + c.Text
}

// Encoder is anything that can be sent as the query parameter.
type Encoder interface {
	Encode() (string, []Warning)
}

// RawQuery is an already serialized query string, passed through as is.
type RawQuery string

func (r RawQuery) Encode() (string, []Warning) { return string(r), nil }

// IsBlank reports whether e would send an empty query string. A nil e,
// including a nil *Query, is blank.
func IsBlank(e Encoder) bool {
	if e == nil {
		return true
	}
	s, _ := e.Encode()
	return strings.TrimSpace(s) == ""
}

// Query is an OR of groups, each group an AND of clauses. Methods mutate
// the receiver and return it so calls can be chained. The zero value is an
// empty query; And and Or on it both start the first group. An empty or nil
// query encodes to "" and is rejected before any request is made.
type Query struct {
	groups [][]Clause
}

func NewQuery(text string, opts ...ClauseOption) (*Query, error) {
	c, err := NewClause(text, opts...)
	if err != nil {
		return nil, err
	}
	return &Query{groups: [][]Clause{{c}}}, nil
}

// And adds a clause to the last group. On error the query is left as it was.
func (q *Query) And(text string, opts ...ClauseOption) (*Query, error) {
	c, err := NewClause(text, opts...)
	if err != nil {
		return q, err
	}
	return q.AndClause(c), nil
}

// Or starts a new group with a single clause.
func (q *Query) Or(text string, opts ...ClauseOption) (*Query, error) {
	c, err := NewClause(text, opts...)
	if err != nil {
		return q, err
	}
	return q.OrClause(c), nil
}

// AndClause expects c to be valid already (see NewClause).
func (q *Query) AndClause(c Clause) *Query {
	if len(q.groups) == 0 {
		q.groups = append(q.groups, nil)
	}
	last := len(q.groups) - 1
	q.groups[last] = append(q.groups[last], c)
	return q
}

func (q *Query) OrClause(c Clause) *Query {
	q.groups = append(q.groups, []Clause{c})
	return q
}

// AndQuery appends every clause of other to the last group of q.
func (q *Query) AndQuery(other *Query) *Query {
	if other == nil {
		return q
	}
	for _, g := range other.groups {
		for _, c := range g {
			q.AndClause(c)
		}
	}
	return q
}

// OrQuery appends every group of other as a separate OR group.
func (q *Query) OrQuery(other *Query) *Query {
	if other == nil {
		return q
	}
	for _, g := range other.groups {
		q.groups = append(q.groups, append([]Clause(nil), g...))
	}
	return q
}

// Groups returns a copy of the groups in insertion order.
func (q *Query) Groups() [][]Clause {
	if q == nil {
		return nil
	}
	out := make([][]Clause, len(q.groups))
	for i, g := range q.groups {
		out[i] = append([]Clause(nil), g...)
	}
	return out
}

func (q *Query) IsEmpty() bool { return q == nil || len(q.groups) == 0 }

// Ambiguous is true for a mix of OR and AND: more than one group and at
// least one group with more than one clause.
func (q *Query) Ambiguous() bool {
	if q == nil || len(q.groups) < 2 {
		return false
	}
	for _, g := range q.groups {
		if len(g) > 1 {
			return true
		}
	}
	return false
}

// Encode serializes the query. Clauses of a group are joined with ",AND;",
// groups with ",OR;". The string is produced even for an ambiguous shape,
// the caller gets a warning alongside.
func (q *Query) Encode() (string, []Warning) {
	var warnings []Warning
	if q.Ambiguous() {
		warnings = append(warnings, Warning{
			Kind:    WarnAmbiguousQuery,
			Message: "OR groups containing AND clauses may not be evaluated as expected by the API",
		})
	}
	return q.String(), warnings
}

func (q *Query) String() string {
	if q == nil {
		return ""
	}
	groups := make([]string, 0, len(q.groups))
	for _, g := range q.groups {
		clauses := make([]string, len(g))
		for i, c := range g {
			clauses[i] = c.String()
		}
		groups = append(groups, strings.Join(clauses, andSeparator))
	}
	return strings.Join(groups, orSeparator)
}
