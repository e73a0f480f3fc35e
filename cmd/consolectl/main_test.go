package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopePath(t *testing.T) {
	tests := map[string]string{
		"platform":         "/rbac/platform",
		"tenant/5":         "/rbac/tenant/5",
		"tenant/5/app/web": "/rbac/tenant/5/app/web",
	}
	for in, want := range tests {
		got, err := scopePath(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := scopePath("tenant/")
	assert.Error(t, err)
}
