package domain

import "fmt"

type WarningKind string

const (
	// WarnAmbiguousQuery: several OR groups and at least one of them ANDs
	// more than one clause. Remote precedence for that shape is unknown.
	WarnAmbiguousQuery WarningKind = "ambiguous_query"
	// WarnUnknownValueShape: a record value has neither @value nor @id.
	WarnUnknownValueShape WarningKind = "unknown_value_shape"
)

// Warning is a non-fatal diagnostic. It never replaces a result, it
// accompanies one.
type Warning struct {
	Kind    WarningKind
	Message string
	Field   string
	Keys    []string
}

func (w Warning) String() string {
	if w.Field == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: %s (field %s, keys %v)", w.Kind, w.Message, w.Field, w.Keys)
}
