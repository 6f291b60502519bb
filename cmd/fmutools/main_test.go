package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/f9-o/fmutools"
	"github.com/f9-o/fmutools/internal/cli/commands"
)

func TestVersionDefaultsToLibrary(t *testing.T) {
	assert.Empty(t, version)
	assert.Equal(t, fmutools.Version, commands.Version)
}
