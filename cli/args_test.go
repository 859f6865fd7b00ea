package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandArgsNoIncludes(t *testing.T) {
	out, err := ExpandArgs([]string{"customer", "amount", "first[5]"})
	require.NoError(t, err)
	assert.Equal(t, []string{"customer", "amount", "first[5]"}, out)
}

func TestExpandArgsLeadingAt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cols.txt")
	require.NoError(t, os.WriteFile(path, []byte("customer amount # trailing comment\nfirst[5]\n"), 0o644))

	out, err := ExpandArgs([]string{"@" + path, "sort[amount]"})
	require.NoError(t, err)
	assert.Equal(t, []string{"customer", "amount", "first[5]", "sort[amount]"}, out)
}

func TestExpandArgsTrailingAt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cols.txt")
	require.NoError(t, os.WriteFile(path, []byte("customer\n"), 0o644))

	out, err := ExpandArgs([]string{path + "@"})
	require.NoError(t, err)
	assert.Equal(t, []string{"customer"}, out)
}

func TestExpandArgsMissingFile(t *testing.T) {
	_, err := ExpandArgs([]string{"@/nonexistent/path/for/rowql/test"})
	assert.Error(t, err)
}

func TestExpandArgsNestedInclude(t *testing.T) {
	dir := t.TempDir()
	inner := filepath.Join(dir, "inner.txt")
	outer := filepath.Join(dir, "outer.txt")
	require.NoError(t, os.WriteFile(inner, []byte("amount\n"), 0o644))
	require.NoError(t, os.WriteFile(outer, []byte("customer @"+inner+"\n"), 0o644))

	out, err := ExpandArgs([]string{"@" + outer})
	require.NoError(t, err)
	assert.Equal(t, []string{"customer", "amount"}, out)
}
