package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowql/rowql/pathref"
)

func TestSimplePathMatch(t *testing.T) {
	reg := pathref.NewRegistry()
	ref := reg.Resolve("Order.Customer", pathref.Main)
	m := NewMatcher([]*pathref.Ref{ref})
	rows := 0
	m.OnRow(func() { rows++ })
	m.Reset()

	m.Feed(Event{Kind: StartTag, Name: "Order"})
	m.Feed(Event{Kind: StartTag, Name: "Customer"})
	m.Feed(Event{Kind: Text, Value: "Acme"})
	m.Feed(Event{Kind: EndTag, Name: "Customer"})
	m.Feed(Event{Kind: EndTag, Name: "Order"})

	assert.Equal(t, 1, rows)
}

func TestSyncPathShortCircuits(t *testing.T) {
	reg := pathref.NewRegistry()
	a := reg.Resolve("Root.A", pathref.Main)
	b := reg.Resolve("Root.B", pathref.Main)
	a.Flags |= pathref.Sync
	m := NewMatcher([]*pathref.Ref{a, b})
	rows := 0
	m.OnRow(func() { rows++ })
	m.Reset()

	m.Feed(Event{Kind: StartTag, Name: "Root"})
	m.Feed(Event{Kind: StartTag, Name: "A"})
	m.Feed(Event{Kind: Text, Value: "x"})
	m.Feed(Event{Kind: EndTag, Name: "A"})
	// B never matches, but the sync path alone should have emitted already.
	require.Equal(t, 1, rows)
}

func TestRootCutoffSkipsStructureBeforeNthStartTag(t *testing.T) {
	reg := pathref.NewRegistry()
	id := reg.Resolve("id", pathref.Main)
	m := NewMatcher([]*pathref.Ref{id})
	m.SetRootCutoff(4) // the 4th real start tag becomes the active root
	rows := 0
	m.OnRow(func() { rows++ })
	m.Reset()

	// tags 1-3: root, skip, ignored — all before the cutoff, must not count
	m.Feed(Event{Kind: StartTag, Name: "root"})
	m.Feed(Event{Kind: StartTag, Name: "skip"})
	m.Feed(Event{Kind: StartTag, Name: "ignored"})
	m.Feed(Event{Kind: Text, Value: "x"})
	m.Feed(Event{Kind: EndTag, Name: "ignored"})
	m.Feed(Event{Kind: EndTag, Name: "skip"})

	// tag 4: keep, becomes the active root
	m.Feed(Event{Kind: StartTag, Name: "keep"})
	m.Feed(Event{Kind: StartTag, Name: "id"})
	m.Feed(Event{Kind: Text, Value: "1"})
	m.Feed(Event{Kind: EndTag, Name: "id"})
	m.Feed(Event{Kind: EndTag, Name: "keep"})

	require.Equal(t, 1, rows)
	assert.True(t, m.RootStopped())

	// a second, structurally identical sibling must not resume matching.
	m.Feed(Event{Kind: StartTag, Name: "keep"})
	m.Feed(Event{Kind: StartTag, Name: "id"})
	m.Feed(Event{Kind: Text, Value: "2"})
	m.Feed(Event{Kind: EndTag, Name: "id"})
	m.Feed(Event{Kind: EndTag, Name: "keep"})

	assert.Equal(t, 1, rows)
}

func TestRootCutoffOfOneActivatesImmediately(t *testing.T) {
	reg := pathref.NewRegistry()
	id := reg.Resolve("id", pathref.Main)
	m := NewMatcher([]*pathref.Ref{id})
	m.SetRootCutoff(1)
	rows := 0
	m.OnRow(func() { rows++ })
	m.Reset()

	m.Feed(Event{Kind: StartTag, Name: "doc"})
	m.Feed(Event{Kind: StartTag, Name: "id"})
	m.Feed(Event{Kind: Text, Value: "7"})
	m.Feed(Event{Kind: EndTag, Name: "id"})
	m.Feed(Event{Kind: EndTag, Name: "doc"})

	require.Equal(t, 1, rows)
}

func TestAttributeStack(t *testing.T) {
	m := NewMatcher(nil)
	m.Reset()
	m.Feed(Event{Kind: StartTag, Name: "Item"})
	m.Feed(Event{Kind: Attribute, Name: "ItemOid", Value: "42"})
	v, ok := m.Attribute("ItemOid")
	require.True(t, ok)
	assert.Equal(t, "42", v)
	m.Feed(Event{Kind: EndTag, Name: "Item"})
	_, ok = m.Attribute("ItemOid")
	assert.False(t, ok)
}
