package main

import (
	"fmt"
	"strings"

	"github.com/kitbuilder587/nli-search/internal/domain"
)

// parseClauses builds a query from command line tokens:
//
//	title=jerusalem AND creator:exact=Agnon OR subject=maps
//
// A token is either AND, OR or a clause "field[:match]=text". A token that
// does not start with a known field is searched in any field. Adjacent
// clauses without an operator are ANDed.
func parseClauses(args []string) (*domain.Query, error) {
	var q *domain.Query
	op := ""

	for _, tok := range args {
		switch strings.ToUpper(tok) {
		case "AND", "OR":
			if q == nil {
				return nil, fmt.Errorf("%w: query cannot start with %s", domain.ErrInvalidArgument, tok)
			}
			if op != "" {
				return nil, fmt.Errorf("%w: %s right after %s", domain.ErrInvalidArgument, tok, op)
			}
			op = strings.ToUpper(tok)
			continue
		}

		text, opts, err := parseClause(tok)
		if err != nil {
			return nil, err
		}

		switch {
		case q == nil:
			q, err = domain.NewQuery(text, opts...)
		case op == "OR":
			_, err = q.Or(text, opts...)
		default:
			_, err = q.And(text, opts...)
		}
		if err != nil {
			return nil, err
		}
		op = ""
	}

	if q == nil {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}
	if op != "" {
		return nil, fmt.Errorf("%w: query cannot end with %s", domain.ErrInvalidArgument, op)
	}
	return q, nil
}

func parseClause(tok string) (string, []domain.ClauseOption, error) {
	head, text, found := strings.Cut(tok, "=")
	if !found {
		return tok, nil, nil
	}

	name, mode, hasMode := strings.Cut(head, ":")
	field, err := domain.ParseField(name)
	if err != nil {
		// not a field prefix, the whole token is search text
		return tok, nil, nil
	}

	opts := []domain.ClauseOption{domain.In(field)}
	if hasMode {
		m, err := domain.ParseMatch(mode)
		if err != nil {
			return "", nil, err
		}
		opts = append(opts, domain.WithMatch(m))
	}
	if text == "" {
		return "", nil, fmt.Errorf("%w: empty text for %s", domain.ErrInvalidArgument, field)
	}
	return text, opts, nil
}
