package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskDSN(t *testing.T) {
	tests := map[string]string{
		"":                                      "",
		"postgres://app:s3cret@db:5432/cg":      "postgres://app:***@db:5432/cg",
		"postgres://app@db:5432/cg?sslmode=off": "postgres://app@db:5432/cg?sslmode=off",
		"host=db user=app password=s3cret":      "host=db user=app password=***",
		"host=db user=app":                      "host=db user=app",
	}
	for in, want := range tests {
		assert.Equal(t, want, MaskDSN(in), in)
	}
}
