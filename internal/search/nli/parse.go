package nli

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/kitbuilder587/nli-search/internal/domain"
)

// DublinCorePrefix qualifies every record field key in the API response.
const DublinCorePrefix = "http://purl.org/dc/elements/1.1/"

// RawItem is one undecoded result object.
type RawItem map[string]any

type recordField struct {
	key string
	set func(*domain.Record, string)
}

// keys as the API spells them
var recordFields = []recordField{
	{"date", func(r *domain.Record, v string) { r.Date = v }},
	{"type", func(r *domain.Record, v string) { r.Type = v }},
	{"recordid", func(r *domain.Record, v string) { r.RecordID = v }},
	{"title", func(r *domain.Record, v string) { r.Title = v }},
	{"source", func(r *domain.Record, v string) { r.Source = v }},
	{"language", func(r *domain.Record, v string) { r.Language = v }},
	{"identifier", func(r *domain.Record, v string) { r.Identifier = v }},
	{"linkToMarc", func(r *domain.Record, v string) { r.LinkToMarc = v }},
	{"contributor", func(r *domain.Record, v string) { r.Contributor = v }},
	{"creator", func(r *domain.Record, v string) { r.Creator = v }},
	{"subject", func(r *domain.Record, v string) { r.Subject = v }},
	{"accessRights", func(r *domain.Record, v string) { r.AccessRights = v }},
	{"publisher", func(r *domain.Record, v string) { r.Publisher = v }},
	{"format", func(r *domain.Record, v string) { r.Format = v }},
	{"non_standard_date", func(r *domain.Record, v string) { r.NonStandardDate = v }},
	{"thumbnail", func(r *domain.Record, v string) { r.Thumbnail = v }},
	{"relation", func(r *domain.Record, v string) { r.Relation = v }},
	{"download", func(r *domain.Record, v string) { r.Download = v }},
}

// Parser maps raw result objects to records. It never fails on missing
// fields; odd value shapes are reported through the logger and onWarning.
type Parser struct {
	logger    *zap.Logger
	onWarning func(domain.Warning)
}

func NewParser(logger *zap.Logger, onWarning func(domain.Warning)) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger, onWarning: onWarning}
}

func (p *Parser) Parse(item RawItem) domain.Record {
	var rec domain.Record
	rec.ID = stringValue(item["@id"])
	for _, f := range recordFields {
		f.set(&rec, p.value(item, f.key))
	}
	return rec
}

// ParseAll parses lazily, in input order.
func (p *Parser) ParseAll(items []RawItem) iter.Seq[domain.Record] {
	return func(yield func(domain.Record) bool) {
		for _, item := range items {
			if !yield(p.Parse(item)) {
				return
			}
		}
	}
}

func (p *Parser) value(item RawItem, key string) string {
	raw, ok := item[DublinCorePrefix+key]
	if !ok || raw == nil {
		return ""
	}

	var inner map[string]any
	switch v := raw.(type) {
	case []any:
		if len(v) == 0 {
			return ""
		}
		inner, _ = v[0].(map[string]any)
	case map[string]any:
		inner = v
	}
	if inner == nil {
		p.warn(key, nil)
		return ""
	}

	if v, ok := inner["@value"]; ok {
		return stringValue(v)
	}
	if v, ok := inner["@id"]; ok {
		return stringValue(v)
	}

	keys := make([]string, 0, len(inner))
	for k := range inner {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	p.warn(key, keys)
	return ""
}

func (p *Parser) warn(field string, keys []string) {
	w := domain.Warning{
		Kind:    domain.WarnUnknownValueShape,
		Message: "unrecognized value shape",
		Field:   field,
		Keys:    keys,
	}
	p.logger.Warn("unknown keys in record value",
		zap.String("field", field),
		zap.Strings("keys", keys),
	)
	if p.onWarning != nil {
		p.onWarning(w)
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// DecodeItems reads a JSON array of result objects. Numbers are kept as
// json.Number so identifiers do not lose digits.
func DecodeItems(r io.Reader) ([]RawItem, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var items []RawItem
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}
