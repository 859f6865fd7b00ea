package expr

import (
	"math"

	"github.com/rowql/rowql"
	"github.com/rowql/rowql/operator"
)

// Aggregator is a single-pass accumulator, one instance per aggregate
// slot per group (row, when distinct/aggregated).
type Aggregator interface {
	Consume(v rowql.Value)
	Result() rowql.Value
}

// PairAggregator is implemented by two-argument aggregates (Cov, Corr)
// whose accumulator needs both operands together rather than one Value
// at a time; the row engine type-asserts for it when an aggregate node
// has two children.
type PairAggregator interface {
	ConsumePair(x, y float64)
}

// NewAggregator returns a fresh accumulator for the given aggregate kind.
func NewAggregator(kind operator.AggKind) Aggregator {
	switch kind {
	case operator.AggAny:
		return &anyAgg{}
	case operator.AggCount:
		return &countAgg{}
	case operator.AggSum:
		return &sumAgg{}
	case operator.AggMin:
		return &minMaxAgg{isMax: false}
	case operator.AggMax:
		return &minMaxAgg{isMax: true}
	case operator.AggAvg:
		return &avgAgg{}
	case operator.AggVar:
		return &varAgg{}
	case operator.AggStdev:
		return &varAgg{stdev: true}
	case operator.AggCov:
		return &covAgg{}
	case operator.AggCorr:
		return &covAgg{corr: true}
	default:
		return &anyAgg{}
	}
}

type anyAgg struct {
	v    rowql.Value
	seen bool
}

func (a *anyAgg) Consume(v rowql.Value) {
	if !a.seen && v.AsString() != "" {
		a.v, a.seen = v, true
	}
}
func (a *anyAgg) Result() rowql.Value { return a.v }

type countAgg struct{ n int64 }

func (a *countAgg) Consume(rowql.Value) { a.n++ }
func (a *countAgg) Result() rowql.Value { return rowql.NewInteger(a.n) }

type sumAgg struct{ sum float64 }

func (a *sumAgg) Consume(v rowql.Value) { a.sum += v.AsReal() }
func (a *sumAgg) Result() rowql.Value   { return rowql.NewReal(a.sum) }

type avgAgg struct {
	sum   float64
	count int64
}

func (a *avgAgg) Consume(v rowql.Value) { a.sum += v.AsReal(); a.count++ }
func (a *avgAgg) Result() rowql.Value {
	if a.count == 0 {
		return rowql.NewReal(0)
	}
	return rowql.NewReal(a.sum / float64(a.count))
}

type minMaxAgg struct {
	v     rowql.Value
	isMax bool
	seen  bool
}

func (a *minMaxAgg) Consume(v rowql.Value) {
	if !a.seen {
		a.v, a.seen = v, true
		return
	}
	c := v.Compare(a.v)
	if (a.isMax && c > 0) || (!a.isMax && c < 0) {
		a.v = v
	}
}
func (a *minMaxAgg) Result() rowql.Value { return a.v }

// varAgg implements Var/Stdev per xmlaggr.h:
// variance = (sumSq - sum*sum/count) / (count-1), 0 if count < 2 — a
// sample variance with an N-1 denominator, not Welford's running update,
// matching the original's direct sum-of-squares formula exactly.
type varAgg struct {
	sum, sumSq float64
	count      int64
	stdev      bool
}

func (a *varAgg) Consume(v rowql.Value) {
	x := v.AsReal()
	a.sum += x
	a.sumSq += x * x
	a.count++
}

func (a *varAgg) Result() rowql.Value {
	if a.count < 2 {
		return rowql.NewReal(0)
	}
	n := float64(a.count)
	variance := (a.sumSq - a.sum*a.sum/n) / (n - 1)
	if variance < 0 {
		variance = 0 // floating-point noise guard
	}
	if a.stdev {
		return rowql.NewReal(math.Sqrt(variance))
	}
	return rowql.NewReal(variance)
}

// covAgg implements Cov/Corr per xmlaggr.h's CovarianceHelper: a
// Welford-style co-moment update with rescale = (count-1)/count.
type covAgg struct {
	count      int64
	meanX      float64
	meanY      float64
	sumSqX     float64
	sumSqY     float64
	coMoment   float64
	corr       bool
}

func (a *covAgg) ConsumePair(x, y float64) {
	a.count++
	n := float64(a.count)
	dx := x - a.meanX
	dy := y - a.meanY
	rescale := (n - 1) / n
	a.meanX += dx / n
	a.meanY += dy / n
	a.coMoment += dx * dy * rescale
	a.sumSqX += dx * dx * rescale
	a.sumSqY += dy * dy * rescale
}

// Consume exists to satisfy Aggregator for uniform registration; cov/corr
// are two-argument aggregates and are driven directly via ConsumePair by
// the row engine, which evaluates both child expressions itself.
func (a *covAgg) Consume(rowql.Value) {}

func (a *covAgg) Result() rowql.Value {
	if a.count < 2 {
		return rowql.NewReal(0)
	}
	n := float64(a.count)
	// GetCovariance() divides the co-moment by the population count, not
	// count-1; sx/sy use the matching population denominator so corr()'s
	// ratio stays the n-independent coMoment/sqrt(sumSqX*sumSqY) form.
	cov := a.coMoment / n
	if !a.corr {
		return rowql.NewReal(cov)
	}
	sx := math.Sqrt(a.sumSqX / n)
	sy := math.Sqrt(a.sumSqY / n)
	if sx == 0 || sy == 0 {
		return rowql.NewReal(0)
	}
	return rowql.NewReal(cov / (sx * sy))
}
