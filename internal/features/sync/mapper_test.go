package sync

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver struct {
	value interface{}
	err   error
}

func (r *staticResolver) Resolve(script string, value interface{}, record map[string]interface{}) (interface{}, error) {
	return r.value, r.err
}

func TestApplyMappingsBasic(t *testing.T) {
	source := map[string]interface{}{
		"name": "Acme Corp",
		"contact": map[string]interface{}{
			"email": "sales@acme.example",
		},
	}
	mappings := []FieldMapping{
		{LocalField: "name", RemoteField: "company_name"},
		{LocalField: "contact.email", RemoteField: "primary.email"},
	}

	target := ApplyMappings(source, mappings, nil)

	assert.Equal(t, "Acme Corp", target["company_name"])
	primary, ok := target["primary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "sales@acme.example", primary["email"])
}

func TestApplyMappingsMissingAndNilFields(t *testing.T) {
	source := map[string]interface{}{
		"name":  "Acme Corp",
		"notes": nil,
	}
	mappings := []FieldMapping{
		{LocalField: "name", RemoteField: "company_name"},
		{LocalField: "phone", RemoteField: "phone_number"},
		{LocalField: "notes", RemoteField: "remarks", Transform: TransformUppercase},
	}

	target := ApplyMappings(source, mappings, nil)

	assert.Equal(t, "Acme Corp", target["company_name"])
	_, hasPhone := target["phone_number"]
	assert.False(t, hasPhone, "a missing source field must not appear on the target")
	remarks, hasRemarks := target["remarks"]
	assert.True(t, hasRemarks, "an explicit nil passes through")
	assert.Nil(t, remarks)
}

func TestApplyTransformDateFormat(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  interface{}
	}{
		{"time value", time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC), "2026-03-15"},
		{"rfc3339 string", "2026-03-15T09:30:00Z", "2026-03-15"},
		{"datetime string", "2026-03-15 09:30:00", "2026-03-15"},
		{"date string", "2026-03-15", "2026-03-15"},
		{"unparseable string", "next tuesday", "next tuesday"},
		{"non-date value", 42, 42},
	}

	m := FieldMapping{Transform: TransformDateFormat}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyTransform(m, tt.value, nil, nil))
		})
	}
}

func TestApplyTransformCurrencyFormat(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  interface{}
	}{
		{"rounds half up", 10.567, 10.57},
		{"pads to cents", float64(10), 10.0},
		{"integer input", 42, 42.0},
		{"numeric string", "19.999", 20.0},
		{"non-numeric string", "free", "free"},
	}

	m := FieldMapping{Transform: TransformCurrencyFormat}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyTransform(m, tt.value, nil, nil))
		})
	}
}

func TestApplyTransformCase(t *testing.T) {
	upper := FieldMapping{Transform: TransformUppercase}
	lower := FieldMapping{Transform: TransformLowercase}

	assert.Equal(t, "ACME", applyTransform(upper, "acme", nil, nil))
	assert.Equal(t, "acme", applyTransform(lower, "ACME", nil, nil))
	assert.Equal(t, 42, applyTransform(upper, 42, nil, nil), "case transforms leave non-strings alone")
}

func TestApplyTransformCustom(t *testing.T) {
	m := FieldMapping{Transform: TransformCustom, CustomScript: "output := value"}

	resolved := applyTransform(m, "raw", nil, &staticResolver{value: "transformed"})
	assert.Equal(t, "transformed", resolved)

	failed := applyTransform(m, "raw", nil, &staticResolver{err: errors.New("boom")})
	assert.Equal(t, "raw", failed, "a failing script keeps the source value")

	noResolver := applyTransform(m, "raw", nil, nil)
	assert.Equal(t, "raw", noResolver)
}

func TestTengoResolver(t *testing.T) {
	resolver := NewTengoResolver()

	t.Run("uses value and record", func(t *testing.T) {
		record := map[string]interface{}{"rate": 2}
		out, err := resolver.Resolve("output := value * record.rate", 21, record)
		require.NoError(t, err)
		assert.EqualValues(t, 42, out)
	})

	t.Run("string manipulation", func(t *testing.T) {
		out, err := resolver.Resolve(`output := value + "-eu"`, "sku-100", nil)
		require.NoError(t, err)
		assert.Equal(t, "sku-100-eu", out)
	})

	t.Run("compile error", func(t *testing.T) {
		_, err := resolver.Resolve("output :=", 1, nil)
		assert.Error(t, err)
	})

	t.Run("missing output", func(t *testing.T) {
		_, err := resolver.Resolve("x := value", 1, nil)
		assert.Error(t, err)
	})
}

func TestInvertMappings(t *testing.T) {
	mappings := []FieldMapping{
		{LocalField: "name", RemoteField: "company_name", Transform: TransformUppercase},
		{LocalField: "total", RemoteField: "amount", Transform: TransformCustom, CustomScript: "output := value"},
	}

	inverse := InvertMappings(mappings)

	assert.Equal(t, "company_name", inverse[0].LocalField)
	assert.Equal(t, "name", inverse[0].RemoteField)
	assert.Equal(t, TransformUppercase, inverse[0].Transform)

	assert.Equal(t, "amount", inverse[1].LocalField)
	assert.Equal(t, "total", inverse[1].RemoteField)
	assert.Empty(t, inverse[1].Transform, "custom scripts do not survive inversion")
	assert.Empty(t, inverse[1].CustomScript)
}
