package rowengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedCaseDoc = `<orders>
<order><ID>1</ID><Customer>Alice</Customer></order>
<order><ID>2</ID><Customer>Bob</Customer></order>
</orders>`

func TestBarewordMatchesTagRegardlessOfCaseByDefault(t *testing.T) {
	rows := runQuery(t, []string{"id", "customer"}, mixedCaseDoc)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0][0].AsString())
	assert.Equal(t, "Alice", rows[0][1].AsString())
}

// with --case, "id"/"customer" never match the differently-cased
// <ID>/<Customer> tags, so the matcher's all-matched row-commit rule
// never fires and no row is ever produced.
func TestCaseDirectiveEnforcesExactTagCase(t *testing.T) {
	rows := runQuery(t, []string{"--case", "id", "customer"}, mixedCaseDoc)
	require.Len(t, rows, 0)
}
