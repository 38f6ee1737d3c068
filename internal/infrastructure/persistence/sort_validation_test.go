package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns DESC", "", "DESC"},
		{"ASC uppercase", "ASC", "ASC"},
		{"asc lowercase", "asc", "ASC"},
		{"DESC uppercase", "DESC", "DESC"},
		{"invalid value returns DESC", "INVALID", "DESC"},
		{"sql injection attempt returns DESC", "ASC; DROP TABLE users;--", "DESC"},
		{"whitespace only returns DESC", "   ", "DESC"},
		{"whitespace around ASC is trimmed", "  asc  ", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	allowed := map[string]bool{
		"id":         true,
		"created_at": true,
		"updated_at": true,
		"name":       true,
	}

	tests := []struct {
		name         string
		input        string
		defaultField string
		expected     string
	}{
		{"empty string returns default", "", "created_at", "created_at"},
		{"valid field passes through", "name", "created_at", "name"},
		{"valid field id passes through", "id", "created_at", "id"},
		{"unknown field returns default", "invalid_field", "created_at", "created_at"},
		{"sql injection returns default", "id; DROP TABLE users;--", "created_at", "created_at"},
		{"matching is case sensitive", "NAME", "created_at", "created_at"},
		{"whitespace only returns default", "   ", "created_at", "created_at"},
		{"whitespace around valid field is trimmed", "  name  ", "created_at", "name"},
		{"embedded space returns default", "name users", "created_at", "created_at"},
		{"quote injection returns default", "name'--", "created_at", "created_at"},
		{"empty default with valid field", "name", "", "name"},
		{"empty default with invalid field", "invalid", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, allowed, tt.defaultField))
		})
	}
}

// The repository whitelists must all carry the shared model columns.
func TestSortFieldsWhitelists(t *testing.T) {
	whitelists := map[string]map[string]bool{
		"SubjectMappingSortFields": SubjectMappingSortFields,
		"RouteSortFields":          RouteSortFields,
		"OrderSortFields":          OrderSortFields,
	}

	for name, whitelist := range whitelists {
		t.Run(name, func(t *testing.T) {
			for _, field := range []string{"id", "created_at", "updated_at"} {
				assert.True(t, whitelist[field], "%s should contain '%s'", name, field)
			}
			assert.Greater(t, len(whitelist), 3, "%s should list domain columns too", name)
		})
	}
}

func TestSQLInjectionPrevention(t *testing.T) {
	payloads := []string{
		"id; DROP TABLE users;--",
		"id' OR '1'='1",
		"id\"; DROP TABLE users;--",
		"id UNION SELECT * FROM users",
		"id ORDER BY 1",
		"id, (SELECT password FROM users)",
		"CASE WHEN 1=1 THEN id ELSE name END",
		"id/**/;DROP TABLE users",
		"id\n; DROP TABLE users",
		"id\t; DROP TABLE users",
		"' OR ''='",
		"1; EXEC xp_cmdshell('dir')",
	}

	for _, payload := range payloads {
		label := payload[:min(len(payload), 30)]

		t.Run("field: "+label, func(t *testing.T) {
			assert.Equal(t, "created_at", ValidateSortField(payload, OrderSortFields, "created_at"),
				"payload should be rejected: %s", payload)
		})
		t.Run("order: "+label, func(t *testing.T) {
			assert.Equal(t, "DESC", ValidateSortOrder(payload),
				"payload should be rejected: %s", payload)
		})
	}
}
