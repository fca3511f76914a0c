package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReturnsConfigError(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
