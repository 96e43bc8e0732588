package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/suitemux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "suitemux version "+strings.TrimSpace(suitemux.Version)+"\n", out.String())
}

func TestRunCommand_NoChildren(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", "--dir", t.TempDir(), "--reporter", "spec", "--color", "never"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Executed 0 of 0 SUCCESS")
}

func TestRunCommand_InvalidColor(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"run", "--dir", t.TempDir(), "--color", "sometimes"})
	assert.ErrorContains(t, rootCmd.Execute(), "color must be auto, always or never")
}
