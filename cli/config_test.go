package cli

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsSplitsFlagsFromQueryTokens(t *testing.T) {
	var out bytes.Buffer
	fs, cfg := NewFlagSet("rowql", &out)
	tokens, err := ParseArgs(fs, []string{"-verbose", "-progress", "customer", "amount", "first[5]"})
	require.NoError(t, err)
	assert.True(t, cfg.Verbose)
	assert.True(t, cfg.Progress)
	assert.Equal(t, []string{"customer", "amount", "first[5]"}, tokens)
}

func TestParseArgsHelpShorthand(t *testing.T) {
	var out bytes.Buffer
	fs, cfg := NewFlagSet("rowql", &out)
	_, err := ParseArgs(fs, []string{"-h"})
	require.NoError(t, err)
	assert.True(t, cfg.Help)
}

func TestParseArgsUnknownFlagErrors(t *testing.T) {
	var out bytes.Buffer
	fs, _ := NewFlagSet("rowql", &out)
	_, err := ParseArgs(fs, []string{"-not-a-real-flag"})
	assert.Error(t, err)
}

func TestParseArgsExpandsIncludeFilesFirst(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/cols.txt"
	require.NoError(t, os.WriteFile(path, []byte("customer amount\n"), 0o644))

	var out bytes.Buffer
	fs, _ := NewFlagSet("rowql", &out)
	tokens, err := ParseArgs(fs, []string{"@" + path, "first[5]"})
	require.NoError(t, err)
	assert.Equal(t, []string{"customer", "amount", "first[5]"}, tokens)
}
