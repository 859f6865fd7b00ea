// Package match drives a set of path references over a stream of
// start-tag, end-tag, and text events, tracking parse depth, assigning
// match order, and detecting row boundaries.
package match

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/rowql/rowql/pathref"
)

var tagFoldCaser = cases.Fold()

// syntheticRootName is the wrapper tag Reset feeds once at the start of
// every pass. It never counts toward root(n)'s node cutoff.
const syntheticRootName = "__root"

// EventKind distinguishes the four event types the tokenizer and the
// input unifier both produce.
type EventKind int

const (
	StartTag EventKind = iota
	EndTag
	Text
	Attribute
)

// Event is one unit of the normalized stream every input format is
// reduced to before it reaches the matcher.
type Event struct {
	Kind  EventKind
	Name  string // tag name for Start/End/Attribute
	Value string // text payload, or attribute value
	Line  int
}

// attrEntry is one (name, value) pair on the attribute stack, tagged with
// the structural depth it was pushed at.
type attrEntry struct {
	depth int
	name  string
	value string
}

// Matcher owns one scope's working set of path references plus the
// bookkeeping a streaming structural match needs: node stack, per-level
// attribute counts, line/node counters, and current depth.
type Matcher struct {
	refs  []*pathref.Ref
	depth int

	nodeStack []string
	attrStack []attrEntry

	lineNum     int
	nodeNum     int
	matchedRows int
	outputRows  int

	rootCutoff   int // root(n): ignore structure until the n-th start tag
	rootSeen     int
	rootDoneDep  int
	rootActive   bool
	rootStopped  bool // root(n): cutoff node's end tag closed; matching halts for good

	caseFold bool // case[=false] (the default): fold tag names before comparing

	onRow func()

	// depthObserver, when set, fires with the matcher's current depth
	// every time a start or end tag changes it, including tags that
	// don't themselves complete a row. Pivot partition-boundary
	// detection needs to see depth dip below a trained level between
	// committed rows, not just the depth each committed row happened
	// to arrive at.
	depthObserver func(depth int)

	// pendingOrder is the next match-order number to hand out within
	// the current row's match window.
	pendingOrder int
}

func NewMatcher(refs []*pathref.Ref) *Matcher {
	return &Matcher{refs: refs}
}

// SetRootCutoff implements the root(n) directive: structure before the
// n-th start tag is ignored, and parsing stops after its matching end tag.
func (m *Matcher) SetRootCutoff(n int) {
	m.rootCutoff = n
}

// SetCaseFold controls whether start-tag names are folded before being
// compared against a path reference's literal atoms. fold should be the
// inverse of the case[] directive's case-sensitive setting.
func (m *Matcher) SetCaseFold(fold bool) {
	m.caseFold = fold
}

// SetDepthObserver registers a callback fired with the matcher's depth on
// every structural transition (start or end tag), independent of whether
// that tag completed a row.
func (m *Matcher) SetDepthObserver(f func(depth int)) {
	m.depthObserver = f
}

// RootStopped reports whether root(n)'s cutoff node has already closed;
// once true, the matcher ignores every further event.
func (m *Matcher) RootStopped() bool { return m.rootStopped }

// OnRow registers the callback invoked when a row becomes ready to emit.
func (m *Matcher) OnRow(f func()) { m.onRow = f }

func (m *Matcher) Depth() int { return m.depth }
func (m *Matcher) LineNum() int { return m.lineNum }
func (m *Matcher) NodeNum() int { return m.nodeNum }
func (m *Matcher) MatchedRows() int { return m.matchedRows }

// NodeName returns the tag name at the top of the node stack, or "" at
// the synthetic root.
func (m *Matcher) NodeName() string {
	if len(m.nodeStack) <= 1 {
		return ""
	}
	return m.nodeStack[len(m.nodeStack)-1]
}

// Path returns the dotted path of the node stack below the synthetic
// root wrapper, for the immediate "path()" function.
func (m *Matcher) Path() string {
	if len(m.nodeStack) <= 1 {
		return ""
	}
	return strings.Join(m.nodeStack[1:], ".")
}

// Feed advances the matcher by one event. The synthetic "__root" wrapper
// start tag must be fed once via Reset before the real stream, so the
// mandatory leading wildcard in every path has something to match and
// multiple files can be streamed through one matcher.
func (m *Matcher) Feed(ev Event) {
	switch ev.Kind {
	case StartTag:
		m.startTag(ev)
	case EndTag:
		m.endTag(ev)
	case Text:
		m.text(ev.Value)
	case Attribute:
		m.attribute(ev)
	}
}

// Reset seeds the matcher with the synthetic root wrapper and clears all
// per-row state, used at the start of every pass.
func (m *Matcher) Reset() {
	m.depth = 0
	m.nodeStack = m.nodeStack[:0]
	m.attrStack = m.attrStack[:0]
	m.lineNum = 0
	m.nodeNum = 0
	m.matchedRows = 0
	m.outputRows = 0
	m.rootSeen = 0
	m.rootStopped = false
	m.rootActive = m.rootCutoff == 0
	for _, r := range m.refs {
		r.ResetMatch()
	}
	m.Feed(Event{Kind: StartTag, Name: syntheticRootName})
}

func (m *Matcher) startTag(ev Event) {
	if m.rootStopped {
		return
	}
	m.depth++
	m.nodeNum++
	m.nodeStack = append(m.nodeStack, ev.Name)
	if ev.Line > 0 {
		m.lineNum = ev.Line
	}

	// the synthetic wrapper never counts toward root(n)'s cutoff; it
	// always proceeds straight to ref matching, as if root were active.
	if ev.Name != syntheticRootName && !m.rootActive {
		m.rootSeen++
		if m.rootSeen >= m.rootCutoff {
			m.rootActive = true
			m.rootDoneDep = m.depth
		} else {
			if m.depthObserver != nil {
				m.depthObserver(m.depth)
			}
			return
		}
	}

	anySync := false
	for _, r := range m.refs {
		advanced := m.advanceStart(r, ev.Name)
		if advanced && !r.IsMatched() {
			r.SetMatched(true)
			m.pendingOrder++
			r.SetMatchOrder(m.pendingOrder)
			r.BeginText()
			if r.Flags.Has(pathref.Sync) {
				anySync = true
			}
		}
	}
	m.maybeEmit(anySync)
	if m.depthObserver != nil {
		m.depthObserver(m.depth)
	}
}

func (m *Matcher) endTag(ev Event) {
	if m.rootStopped {
		return
	}
	for _, r := range m.refs {
		if r.Depth() > 0 {
			r.DecrDepth()
			if r.Depth() == 0 && r.IsMatched() {
				r.FinalizeText()
			}
		}
	}
	if len(m.nodeStack) > 0 {
		m.nodeStack = m.nodeStack[:len(m.nodeStack)-1]
	}

	// root(n)'s cutoff node closing halts matching for good, mirroring
	// the original parser's ParseStopped flag: matching never resumes
	// on a later sibling.
	if m.rootActive && m.rootCutoff > 0 && m.depth == m.rootDoneDep {
		m.rootActive = false
		m.rootStopped = true
	}

	m.depth--
	m.popAttrsAtDepth(m.depth + 1)
	if m.depthObserver != nil {
		m.depthObserver(m.depth)
	}
}

func (m *Matcher) text(s string) {
	for _, r := range m.refs {
		if r.IsMatched() && r.Depth() == len(r.Tags) {
			r.AppendText(s)
		}
	}
}

func (m *Matcher) attribute(ev Event) {
	m.attrStack = append(m.attrStack, attrEntry{depth: m.depth, name: ev.Name, value: ev.Value})
}

func (m *Matcher) popAttrsAtDepth(depth int) {
	i := len(m.attrStack)
	for i > 0 && m.attrStack[i-1].depth >= depth {
		i--
	}
	m.attrStack = m.attrStack[:i]
}

// Attribute walks the stack bottom-up for the first entry with the given
// name at or above the current depth.
func (m *Matcher) Attribute(name string) (string, bool) {
	for i := len(m.attrStack) - 1; i >= 0; i-- {
		if m.attrStack[i].name == name {
			return m.attrStack[i].value, true
		}
	}
	return "", false
}

// advanceStart applies one start-tag event to a single path reference's
// tag list: a literal atom consumes a matching tag; a wildcard consumes
// any tag and tolerates being skipped (0+) if the next literal atom
// already matches the incoming tag. Returns true if this event completed
// the path's full match. Tag names are compared case-fold when the
// matcher's caseFold is set.
func (m *Matcher) advanceStart(r *pathref.Ref, tag string) bool {
	idx := r.Depth()
	if idx >= len(r.Tags) {
		return false
	}
	t := r.Tags[idx]
	if t.Wildcard {
		// 0+ semantics: if the following literal atom already matches
		// this tag, the wildcard can be skipped (consumed with zero
		// width) and the literal atom consumed in the same event.
		if idx+1 < len(r.Tags) && !r.Tags[idx+1].Wildcard && m.tagEquals(r.Tags[idx+1].Name, tag) {
			r.IncrDepth() // wildcard, zero-width
			r.IncrDepth() // literal atom that follows it
			return r.Depth() == len(r.Tags)
		}
		r.IncrDepth() // 1+ semantics: wildcard consumes this tag
		return r.Depth() == len(r.Tags)
	}
	if m.tagEquals(t.Name, tag) {
		r.IncrDepth()
		return r.Depth() == len(r.Tags)
	}
	return false
}

func (m *Matcher) tagEquals(atom, tag string) bool {
	if atom == tag {
		return true
	}
	if !m.caseFold {
		return false
	}
	return tagFoldCaser.String(atom) == tagFoldCaser.String(tag)
}

// maybeEmit checks the all-matched / sync / no-data rules and fires the
// row callback when the row is ready.
func (m *Matcher) maybeEmit(anySync bool) {
	if anySync {
		m.commitRow()
		return
	}
	allMatched := true
	for _, r := range m.refs {
		if r.Flags.Has(pathref.NoData) {
			continue
		}
		if !r.IsMatched() {
			allMatched = false
			break
		}
	}
	if allMatched && len(m.refs) > 0 {
		m.commitRow()
	}
}

func (m *Matcher) commitRow() {
	m.matchedRows++
	if m.onRow != nil {
		m.onRow()
	}
	for _, r := range m.refs {
		r.ResetMatch()
	}
	m.pendingOrder = 0
}
