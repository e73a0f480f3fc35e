package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCode(t *testing.T) {
	valid := []string{
		"a",
		"viewer",
		"platform_admin",
		"rbac.roles.read",
		"reports:export",
		"App-Viewer",
		"a" + strings.Repeat("b", 126) + "c", // 128
	}
	for _, v := range valid {
		assert.True(t, ValidCode(v), v)
	}

	invalid := []string{
		"",
		"has space",
		".lead",
		"trail-",
		"semi;colon",
		"tab\there",
		strings.Repeat("a", 129),
	}
	for _, v := range invalid {
		assert.False(t, ValidCode(v), v)
	}
}
