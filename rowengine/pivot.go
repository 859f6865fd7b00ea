package rowengine

import (
	"github.com/rowql/rowql"
	"github.com/rowql/rowql/expr"
	"github.com/rowql/rowql/query"
)

// pivotState accumulates one pivot(names, values[, jagged]) partition at
// a time. Partition boundaries are detected structurally rather than by
// comparing output-column values: the depth of a partition's first row
// is trained against its second row (mirroring
// original_source/xml_lib/xmlpivot.h's IsAtEndOfPartition/
// m_partitionDepth), and a later row whose depth dips below that trained
// level closes the partition. This works even when a pivot query
// declares no other output column at all, which a value-equality key
// could never detect a boundary for.
type pivotState struct {
	spec *query.PivotSpec

	// gatherAll mirrors QuerySpec.NeedsGatherDataPass: a jagged pivot
	// keeps discovering new column names from every partition, while a
	// non-jagged one freezes the column set once its first partition
	// closes, matching xmlpivot.h's Accept()/Reject() bookkeeping
	// (m_collectingColumns goes false after the first accepted row
	// unless m_jagged).
	gatherAll bool

	curRow  expr.Row
	pairs   []pivotPair
	started bool

	training       bool
	partitionDepth int
	partitionsSeen int

	names   []string
	nameIdx map[string]int

	finished []finishedPivotRow
}

type pivotPair struct {
	name  string
	value rowql.Value
}

type finishedPivotRow struct {
	row   expr.Row
	pairs []pivotPair
}

func newPivotState(spec *query.QuerySpec) *pivotState {
	return &pivotState{
		spec:      spec.Pivot,
		nameIdx:   make(map[string]int),
		gatherAll: spec.NeedsGatherDataPass(),
	}
}

// accumulate is called from onMainRow for every matched row while a
// pivot is active. Partition boundaries themselves are detected by
// observeDepth, called on every structural transition; accumulate just
// seeds a fresh partition's trained depth on its first row and appends
// this row's (name, value) pair to whichever partition is currently open.
func (p *pivotState) accumulate(e *Engine, row expr.Row) {
	if !p.started {
		p.started = true
		p.training = true
		p.partitionDepth = e.ic.m.Depth()
		p.curRow = row
	}

	nameV, err := expr.Eval(p.spec.NamesExpr, row, e.ic)
	if err != nil {
		return
	}
	valV, err := expr.Eval(p.spec.ValuesExpr, row, e.ic)
	if err != nil {
		return
	}
	name := nameV.AsString()
	p.pairs = append(p.pairs, pivotPair{name: name, value: valV})

	if _, ok := p.nameIdx[name]; ok {
		return
	}
	if !p.gatherAll && p.partitionsSeen > 0 {
		// column set froze after the first partition closed; a name
		// never seen there has no slot to land in.
		return
	}
	p.nameIdx[name] = len(p.names)
	p.names = append(p.names, name)
}

// observeDepth watches every start/end tag's resulting depth, independent
// of whether that tag completed a row, since a partition boundary between
// two structurally identical siblings only shows up as a depth dip on the
// tags between their rows, not on the rows themselves.
func (p *pivotState) observeDepth(e *Engine, depth int) {
	if !p.started {
		return
	}
	if p.training {
		if len(p.pairs) >= 2 {
			p.training = false
		} else {
			if depth < p.partitionDepth {
				p.partitionDepth = depth
			}
			return
		}
	}
	if depth < p.partitionDepth {
		p.materialize()
		p.started = false
	}
}

func (p *pivotState) materialize() {
	if !p.started || p.curRow == nil {
		return
	}
	p.finished = append(p.finished, finishedPivotRow{row: p.curRow, pairs: p.pairs})
	p.pairs = nil
	p.partitionsSeen++
}

// flush closes out the final partition and, once every row has been
// seen, assigns row slots to the discovered pivot column names and
// dispatches each completed row into the engine's normal filter/store
// path with its pivot values filled in (missing ones default to empty).
func (p *pivotState) flush(e *Engine) {
	if p.started {
		p.materialize()
		p.started = false
	}

	base := e.spec.SlotCount()
	for i, name := range p.names {
		e.spec.Columns = append(e.spec.Columns, &query.Column{
			Name:  name,
			Flags: query.ColOutput | query.ColPivotResult,
			Index: len(e.spec.Columns),
			Slot:  base + i,
		})
	}

	for _, fr := range p.finished {
		row := make(expr.Row, base+len(p.names))
		copy(row, fr.row)
		for i := len(fr.row); i < len(row); i++ {
			row[i] = rowql.NewString("")
		}
		for _, pr := range fr.pairs {
			if idx, ok := p.nameIdx[pr.name]; ok {
				row[base+idx] = pr.value
			}
		}
		e.dispatchCandidate(row)
	}
}
