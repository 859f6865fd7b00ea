// Package pathref implements parsed path references: dotted, wildcard-
// prefixed patterns bound to a scope (main input vs join input) that the
// streaming matcher evaluates against the tag tree.
package pathref

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/arc/v2"

	"github.com/rowql/rowql"
)

// Scope distinguishes the main input's path namespace from the join
// input's; path specs with the same text in different scopes never share
// a Ref.
type Scope int

const (
	Main Scope = iota
	Join
)

// Flag records state a matcher toggles as it drives this reference.
type Flag uint32

const (
	Matched Flag = 1 << iota
	NoData       // matched at the start tag, doesn't need end-tag text
	AppendData   // text accumulation spans multiple text events
	Sync         // matching this path alone satisfies the all-matched rule
	Joined       // this reference lives in the join scope
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// Tag is one atom of a parsed path: either a literal name or a wildcard.
type Tag struct {
	Name       string
	Wildcard   bool
	ParseDepth int // m_relativeParseDepth: atoms consumed since the previous literal
}

// Ref is a path reference: a parsed tag sequence plus the mutable state a
// matcher drives as it processes the stream.
type Ref struct {
	Spec  string
	Scope Scope
	Tags  []Tag
	Flags Flag

	// runtime fields, reset per pass
	depth      int // count of currently-matched atoms
	matchOrder int
	value      rowql.Value
	text       strings.Builder

	StartMatch []int // indices into the owning expr set; filled during post-processing
	EndMatch   []int
}

// Registry deduplicates path specs within one scope: identical spec text
// shares a single Ref.
type Registry struct {
	mu   sync.Mutex
	refs map[string]*Ref
}

func NewRegistry() *Registry {
	return &Registry{refs: make(map[string]*Ref)}
}

// tagCache memoizes the parsed Tag slice for a path-spec string, since the
// same literal text is commonly repeated across columns of a query and
// across repeated invocations of a query pipeline fed from @file.
var tagCache *lru.ARCCache[string, []Tag]

func init() {
	c, err := lru.NewARC[string, []Tag](256)
	if err != nil {
		panic(err)
	}
	tagCache = c
}

// Resolve returns the shared Ref for spec in scope, parsing and caching it
// on first use.
func (r *Registry) Resolve(spec string, scope Scope) *Ref {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := spec
	if scope == Join {
		key = "join::" + spec
	}
	if ref, ok := r.refs[key]; ok {
		return ref
	}
	ref := &Ref{Spec: spec, Scope: scope, Tags: parseTags(spec)}
	if scope == Join {
		ref.Flags |= Joined
	}
	r.refs[key] = ref
	return ref
}

// All returns every registered reference, in no particular order; used by
// the matcher to build its per-scope working set.
func (r *Registry) All() []*Ref {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Ref, 0, len(r.refs))
	for _, ref := range r.refs {
		out = append(out, ref)
	}
	return out
}

// parseTags splits a path spec into tag atoms: '.' separates atoms,
// `{name}` escapes metacharacters, '*' is an explicit wildcard, and a
// leading wildcard is inserted if the spec doesn't already start with one.
func parseTags(spec string) []Tag {
	if cached, ok := tagCache.Get(spec); ok {
		out := make([]Tag, len(cached))
		copy(out, cached)
		return out
	}
	var tags []Tag
	i := 0
	for i < len(spec) {
		if spec[i] == '.' {
			i++
			continue
		}
		if spec[i] == '{' {
			end := strings.IndexByte(spec[i:], '}')
			if end < 0 {
				tags = append(tags, Tag{Name: spec[i+1:]})
				break
			}
			tags = append(tags, Tag{Name: spec[i+1 : i+end]})
			i += end + 1
			continue
		}
		j := i
		for j < len(spec) && spec[j] != '.' {
			j++
		}
		atom := spec[i:j]
		if atom == "*" {
			tags = append(tags, Tag{Wildcard: true})
		} else {
			tags = append(tags, Tag{Name: atom})
		}
		i = j
	}
	if len(tags) == 0 || !tags[0].Wildcard {
		tags = append([]Tag{{Wildcard: true}}, tags...)
	}
	tagCache.Add(spec, append([]Tag(nil), tags...))
	return tags
}

// Depth returns the number of currently-matched atoms.
func (r *Ref) Depth() int { return r.depth }

// IsMatched reports whether the path has completed a full match in the
// current row.
func (r *Ref) IsMatched() bool { return r.Flags.Has(Matched) }

// SetMatched marks or clears the completed-match flag.
func (r *Ref) SetMatched(v bool) {
	if v {
		r.Flags |= Matched
	} else {
		r.Flags &^= Matched
	}
}

// BeginText resets the captured text accumulator at a fresh complete match.
func (r *Ref) BeginText() { r.text.Reset() }

// AppendText feeds stream text into the accumulator while the path's last
// tag is open.
func (r *Ref) AppendText(s string) { r.text.WriteString(s) }

// FinalizeText snapshots the accumulated text as the path's matched value.
func (r *Ref) FinalizeText() {
	r.value = rowql.NewString(r.text.String())
}

// Value returns the last matched text value.
func (r *Ref) Value() rowql.Value { return r.value }

// SetProbedValue overwrites the matched value directly, bypassing the
// text accumulator. The join index uses this to replay a join-scope
// row's captured values back onto its Refs while the main pass
// evaluates output columns that reference them, since a join-scope Ref
// is never itself fed events during the main pass.
func (r *Ref) SetProbedValue(v rowql.Value) { r.value = v }

// MatchOrder returns the order this path first completed a match within
// the current row, or 0 if unmatched.
func (r *Ref) MatchOrder() int { return r.matchOrder }

func (r *Ref) SetMatchOrder(n int) { r.matchOrder = n }

// IncrDepth / DecrDepth advance or retreat the matched-atom counter as the
// matcher walks start/end tag events.
func (r *Ref) IncrDepth() { r.depth++ }
func (r *Ref) DecrDepth() {
	if r.depth > 0 {
		r.depth--
	}
}

// ResetMatch clears per-row match state without discarding the parsed
// tag list. The matcher calls it on Reset and after each committed row;
// a later-matching path does not reset paths that matched earlier.
func (r *Ref) ResetMatch() {
	r.Flags &^= Matched
	r.matchOrder = 0
}
