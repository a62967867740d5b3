// Package customfields turns custom field definitions into form fields and
// parses submitted values back into typed values.
package customfields

import (
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/kompello/kompello-console/internal/kompello"
	"github.com/kompello/kompello-console/internal/shared"
)

// DataType mirrors the upstream data type choices.
type DataType int

const (
	Text    DataType = 1
	Number  DataType = 2
	Boolean DataType = 3
)

// Valid reports whether the console knows how to render d.
func (d DataType) Valid() bool {
	return d == Text || d == Number || d == Boolean
}

func (d DataType) String() string {
	switch d {
	case Text:
		return "text"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

// FieldPrefix prefixes custom field inputs so they cannot collide with
// regular form fields.
const FieldPrefix = "cf_"

// Definition is a custom field definition as used by the console.
type Definition struct {
	ID         string
	Key        string
	Name       string
	DataType   DataType
	ShowInUI   bool
	IsArchived bool
}

// FromAPI converts upstream definitions.
func FromAPI(defs []kompello.CustomFieldDefinition) []Definition {
	out := make([]Definition, 0, len(defs))
	for _, def := range defs {
		out = append(out, Definition{
			ID:         def.UUID,
			Key:        def.Key,
			Name:       def.Name,
			DataType:   DataType(def.DataType),
			ShowInUI:   def.ShowInUI,
			IsArchived: def.IsArchived,
		})
	}
	return out
}

// Field is the view model of one custom field.
type Field struct {
	Key      string
	Input    string
	Label    string
	Name     string
	Value    string
	Checked  bool
	ReadOnly bool
}

// BuildSection returns the fields to render, ordered by label. Archived
// definitions are skipped, and so are hidden ones when showInUIOnly is set.
func BuildSection(defs []Definition, values map[string]any, showInUIOnly bool) []Field {
	fields := make([]Field, 0, len(defs))
	for _, def := range visible(defs, showInUIOnly) {
		field := Field{
			Key:   def.Key,
			Label: def.Name,
			Name:  FieldPrefix + def.Key,
		}
		if field.Label == "" {
			field.Label = def.Key
		}
		value, present := values[def.Key]
		switch def.DataType {
		case Text:
			field.Input = "text"
			if present && value != nil {
				field.Value = fmt.Sprint(value)
			}
		case Number:
			field.Input = "number"
			field.Value = formatNumber(value)
		case Boolean:
			field.Input = "checkbox"
			checked, _ := value.(bool)
			field.Checked = checked
		default:
			field.Input = "text"
			field.ReadOnly = true
			if present && value != nil {
				field.Value = fmt.Sprint(value)
			}
		}
		fields = append(fields, field)
	}
	return fields
}

// Outcome is the tagged result of ParseValues. Values maps keys to string,
// float64, bool or nil, where nil clears the field.
type Outcome = shared.FormResult[map[string]any]

// ParseValues reads the submitted values of the fields BuildSection renders
// with showInUIOnly set.
func ParseValues(defs []Definition, form url.Values) Outcome {
	values := make(map[string]any)
	errs := make(map[string]string)
	for _, def := range visible(defs, true) {
		raw := strings.TrimSpace(form.Get(FieldPrefix + def.Key))
		switch def.DataType {
		case Text:
			if raw == "" {
				values[def.Key] = nil
				continue
			}
			values[def.Key] = raw
		case Number:
			if raw == "" {
				values[def.Key] = nil
				continue
			}
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				errs[def.Key] = "validation.number"
				continue
			}
			values[def.Key] = f
		case Boolean:
			switch strings.ToLower(raw) {
			case "", "0", "false", "off":
				values[def.Key] = false
			case "1", "true", "on":
				values[def.Key] = true
			default:
				errs[def.Key] = "validation.boolean"
			}
		default:
			errs[def.Key] = "validation.unknown"
		}
	}
	if len(errs) > 0 {
		return shared.Invalid(values, errs)
	}
	return Outcome{Status: shared.FormOK, Value: values}
}

func visible(defs []Definition, showInUIOnly bool) []Definition {
	out := make([]Definition, 0, len(defs))
	for _, def := range defs {
		if def.IsArchived || (showInUIOnly && !def.ShowInUI) {
			continue
		}
		out = append(out, def)
	}
	slices.SortStableFunc(out, func(a, b Definition) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}

func formatNumber(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
