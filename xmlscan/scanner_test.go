package xmlscan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, s *Scanner) []Event {
	t.Helper()
	var out []Event
	for {
		ev, err := s.Next()
		require.NoError(t, err)
		if ev.EOF {
			return out
		}
		out = append(out, ev)
	}
}

func TestScansStartEndText(t *testing.T) {
	s := New(strings.NewReader(`<Order><Customer>Acme</Customer></Order>`))
	evs := drain(t, s)
	require.Len(t, evs, 5)
	assert.Equal(t, Start, evs[0].Tag.Kind)
	assert.Equal(t, "Order", evs[0].Tag.Name)
	assert.Equal(t, Start, evs[1].Tag.Kind)
	assert.Equal(t, "Acme", evs[2].Text)
	assert.Equal(t, End, evs[3].Tag.Kind)
}

func TestSelfClosingWithAttrs(t *testing.T) {
	s := New(strings.NewReader(`<ItemData ItemOid="X" value="Y"/>`))
	evs := drain(t, s)
	require.Len(t, evs, 1)
	tag := evs[0].Tag
	require.Equal(t, SelfClosing, tag.Kind)
	require.Len(t, tag.Attrs, 2)
	assert.Equal(t, "ItemOid", tag.Attrs[0].Name)
	assert.Equal(t, "X", tag.Attrs[0].Value)
}

func TestSkipsProcessingInstructionsAndComments(t *testing.T) {
	s := New(strings.NewReader(`<?xml version="1.0"?><!-- comment --><A/>`))
	evs := drain(t, s)
	require.Len(t, evs, 1)
	assert.Equal(t, "A", evs[0].Tag.Name)
}

func TestDecodeEntities(t *testing.T) {
	assert.Equal(t, `<a & "b">`, DecodeEntities("&lt;a &amp; &quot;b&quot;&gt;"))
	assert.Equal(t, "A", DecodeEntities("&#65;"))
	assert.Equal(t, "A", DecodeEntities("&#x41;"))
}
