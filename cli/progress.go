package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/gosuri/uilive"
	"github.com/paulbellamy/ratecounter"
	"golang.org/x/term"
)

// Progress renders a single live-updating "N matched, M emitted, R
// rows/sec" status line to stderr, part of rowql's ambient progress
// section. It is a no-op when stderr isn't a terminal, so piping rowql's
// stdout without a tty attached to stderr never corrupts the CSV stream
// (progress writes only ever go to the uilive writer, never stdout).
type Progress struct {
	w       *uilive.Writer
	rate    *ratecounter.RateCounter
	active  bool
	ticker  *time.Ticker
	stop    chan struct{}
	lastMatched int

	Matched func() int
	Emitted func() int
}

// NewProgress builds a Progress. enabled should reflect the --progress
// flag; the terminal check happens internally.
func NewProgress(enabled bool) *Progress {
	if !enabled || !term.IsTerminal(int(os.Stderr.Fd())) {
		return &Progress{}
	}
	w := uilive.New()
	w.Out = os.Stderr
	return &Progress{
		w:      w,
		rate:   ratecounter.NewRateCounter(time.Second),
		active: true,
	}
}

// Start begins the periodic redraw. Call Stop when the run finishes.
func (p *Progress) Start() {
	if !p.active {
		return
	}
	p.w.Start()
	p.ticker = time.NewTicker(200 * time.Millisecond)
	p.stop = make(chan struct{})
	go func() {
		for {
			select {
			case <-p.ticker.C:
				p.render()
			case <-p.stop:
				return
			}
		}
	}()
}

func (p *Progress) render() {
	matched, emitted := 0, 0
	if p.Matched != nil {
		matched = p.Matched()
	}
	if p.Emitted != nil {
		emitted = p.Emitted()
	}
	p.rate.Incr(int64(matched - p.lastMatched))
	p.lastMatched = matched
	fmt.Fprintf(p.w, "%d matched, %d emitted, %d rows/sec\n", matched, emitted, p.rate.Rate())
}

// Stop halts the redraw goroutine and leaves the final line in place.
func (p *Progress) Stop() {
	if !p.active {
		return
	}
	p.ticker.Stop()
	close(p.stop)
	p.render()
	p.w.Stop()
}
