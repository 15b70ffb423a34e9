package sync

import (
	"strings"
	"time"

	"go-bms/pkg/fieldpath"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CustomResolver evaluates a mapping's custom-transform script. The
// mapper core treats "custom" as passthrough when no resolver is
// registered; resolution is the caller's concern, not the engine's.
type CustomResolver interface {
	Resolve(script string, value interface{}, record map[string]interface{}) (interface{}, error)
}

// ApplyMappings produces the target record in remote field names.
// Mappings apply in order; a missing source path contributes nothing,
// a present-but-nil value is carried through untouched.
func ApplyMappings(source map[string]interface{}, mappings []FieldMapping, resolver CustomResolver) map[string]interface{} {
	target := map[string]interface{}{}

	for _, m := range mappings {
		value, ok := fieldpath.Get(source, m.LocalField)
		if !ok {
			continue
		}
		fieldpath.Set(target, m.RemoteField, applyTransform(m, value, source, resolver))
	}

	return target
}

// InvertMappings swaps local and remote paths for the pull direction.
// Custom scripts are push-specific and do not survive inversion.
func InvertMappings(mappings []FieldMapping) []FieldMapping {
	inverted := make([]FieldMapping, len(mappings))
	for i, m := range mappings {
		transform := m.Transform
		if transform == TransformCustom {
			transform = ""
		}
		inverted[i] = FieldMapping{
			LocalField:  m.RemoteField,
			RemoteField: m.LocalField,
			Transform:   transform,
		}
	}
	return inverted
}

func applyTransform(m FieldMapping, value interface{}, record map[string]interface{}, resolver CustomResolver) interface{} {
	if value == nil {
		return nil
	}

	switch m.Transform {
	case TransformDateFormat:
		return formatDate(value)
	case TransformCurrencyFormat:
		return formatCurrency(value)
	case TransformUppercase:
		if s, ok := value.(string); ok {
			return strings.ToUpper(s)
		}
		return value
	case TransformLowercase:
		if s, ok := value.(string); ok {
			return strings.ToLower(s)
		}
		return value
	case TransformCustom:
		if resolver == nil || m.CustomScript == "" {
			return value
		}
		resolved, err := resolver.Resolve(m.CustomScript, value, record)
		if err != nil {
			// A broken script must not lose the source value.
			return value
		}
		return resolved
	default:
		return value
	}
}

// formatDate normalizes a date-like value to a calendar-date string.
func formatDate(value interface{}) interface{} {
	switch d := value.(type) {
	case time.Time:
		return d.Format("2006-01-02")
	case primitive.DateTime:
		return d.Time().Format("2006-01-02")
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	return value
}

// formatCurrency rounds a numeric-like value to two decimal places.
func formatCurrency(value interface{}) interface{} {
	if f, ok := toNumber(value); ok {
		return decimal.NewFromFloat(f).Round(2).InexactFloat64()
	}
	if s, ok := value.(string); ok {
		if d, err := decimal.NewFromString(s); err == nil {
			return d.Round(2).InexactFloat64()
		}
	}
	return value
}
