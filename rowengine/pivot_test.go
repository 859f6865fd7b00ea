package rowengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const attrsDoc = `<items>
<item><id>1</id><attr><name>color</name><value>red</value></attr><attr><name>size</name><value>M</value></attr></item>
<item><id>2</id><attr><name>color</name><value>blue</value></attr></item>
</items>`

func TestPivotDiscoversUnionOfColumnsAcrossPartitions(t *testing.T) {
	rows := runQuery(t, []string{"id", "pivot[name,value]"}, attrsDoc)
	require.Len(t, rows, 2)

	byID := map[string][]string{}
	for _, r := range rows {
		strs := make([]string, len(r))
		for i, v := range r {
			strs[i] = v.AsString()
		}
		byID[strs[0]] = strs
	}

	require.Contains(t, byID, "1")
	require.Contains(t, byID, "2")
	row1 := byID["1"]
	require.Len(t, row1, 3) // id, color, size
	assert.Equal(t, "red", row1[1])
	assert.Equal(t, "M", row1[2])

	row2 := byID["2"]
	require.Len(t, row2, 3)
	assert.Equal(t, "blue", row2[1])
	assert.Equal(t, "", row2[2]) // size never seen for item 2
}

const duplicateIDAttrsDoc = `<items>
<item><id>1</id><attr><name>a</name><value>1</value></attr><attr><name>b</name><value>2</value></attr></item>
<item><id>1</id><attr><name>a</name><value>3</value></attr><attr><name>b</name><value>4</value></attr></item>
</items>`

// two structurally distinct <item> records that happen to carry the same
// id must still land in separate output rows: partition boundaries are
// structural, not keyed on any declared column's value.
func TestPivotSeparatesRecordsWithIdenticalNonPivotColumnValues(t *testing.T) {
	rows := runQuery(t, []string{"id", "pivot[name,value]"}, duplicateIDAttrsDoc)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0][0].AsString())
	assert.Equal(t, "1", rows[0][1].AsString())
	assert.Equal(t, "2", rows[0][2].AsString())
	assert.Equal(t, "1", rows[1][0].AsString())
	assert.Equal(t, "3", rows[1][1].AsString())
	assert.Equal(t, "4", rows[1][2].AsString())
}

// a pivot query that declares no other output column at all still emits
// one row per parent record.
func TestPivotWithNoOtherOutputColumns(t *testing.T) {
	rows := runQuery(t, []string{"pivot[name,value]"}, attrsDoc)
	require.Len(t, rows, 2)
	assert.Equal(t, "red", rows[0][0].AsString())
	assert.Equal(t, "M", rows[0][1].AsString())
	assert.Equal(t, "blue", rows[1][0].AsString())
	assert.Equal(t, "", rows[1][1].AsString())
}
