package fieldpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	source := map[string]interface{}{
		"name": "Acme Corp",
		"contact": map[string]interface{}{
			"email": "sales@acme.example",
			"address": map[string]interface{}{
				"city": "Berlin",
			},
		},
		"total": 120.5,
		"notes": nil,
	}

	tests := []struct {
		name      string
		path      string
		want      interface{}
		wantFound bool
	}{
		{"top level", "name", "Acme Corp", true},
		{"nested", "contact.email", "sales@acme.example", true},
		{"deeply nested", "contact.address.city", "Berlin", true},
		{"number", "total", 120.5, true},
		{"explicit nil value", "notes", nil, true},
		{"missing leaf", "contact.phone", nil, false},
		{"missing intermediate", "billing.address.city", nil, false},
		{"through a scalar", "name.first", nil, false},
		{"empty path", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Get(source, tt.path)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetNilSource(t *testing.T) {
	_, found := Get(nil, "name")
	assert.False(t, found)
}

func TestSet(t *testing.T) {
	target := map[string]interface{}{}

	Set(target, "name", "Acme Corp")
	Set(target, "contact.email", "sales@acme.example")
	Set(target, "contact.address.city", "Berlin")

	assert.Equal(t, "Acme Corp", target["name"])

	contact, ok := target["contact"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "sales@acme.example", contact["email"])

	address, ok := contact["address"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "Berlin", address["city"])
}

func TestSetOverwritesScalarIntermediate(t *testing.T) {
	target := map[string]interface{}{"contact": "plain string"}

	Set(target, "contact.email", "sales@acme.example")

	contact, ok := target["contact"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "sales@acme.example", contact["email"])
}
