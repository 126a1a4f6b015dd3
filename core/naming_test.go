package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamingRoundTrip(t *testing.T) {
	cases := map[string]string{
		"id":          "id",
		"name":        "name",
		"description": "description",
		"created_at":  "createdAt",
		"updated_at":  "updatedAt",
		"is_deleted":  "isDeleted",
	}
	for snake, camel := range cases {
		assert.Equal(t, camel, ToCamel(snake), "ToCamel(%q)", snake)
		assert.Equal(t, snake, ToSnake(camel), "ToSnake(%q)", camel)
		assert.Equal(t, snake, ToSnake(snake), "ToSnake is idempotent on %q", snake)
	}
}

func TestToCamelSkipsEmptySegments(t *testing.T) {
	assert.Equal(t, "createdAt", ToCamel("created__at"))
}
