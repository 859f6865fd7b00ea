// Package input implements the format auto-detector and the JSON/log/CSV
// adapters that normalize every supported input shape into the same
// match.Event stream the matcher consumes.
package input

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/araddon/dateparse"

	"github.com/rowql/rowql/match"
	"github.com/rowql/rowql/xmlscan"
)

// Format names the detected or explicitly-requested input shape.
type Format int

const (
	AutoDetect Format = iota
	XML
	JSON
	Log
	CSV
	TSV
)

// Options configures the CSV/TSV and log adapters.
type Options struct {
	Format    Format
	Header    bool // CSV/TSV: whether the first row names columns
	Delimiter rune // CSV/TSV delimiter override; 0 means auto
}

// Open wraps r in the adapter appropriate for opts.Format, auto-detecting
// it first if unset, and returns a function that calls emit for every
// event in the stream until EOF.
func Open(r io.Reader, opts Options) (func(emit func(match.Event)) error, error) {
	format := opts.Format
	br := bufio.NewReaderSize(r, 64*1024)
	if format == AutoDetect {
		detected, prefix, err := detect(br)
		if err != nil {
			return nil, err
		}
		format = detected
		if len(prefix) > 0 {
			br = bufio.NewReader(io.MultiReader(bytes.NewReader(prefix), br))
		}
	}
	switch format {
	case XML:
		return func(emit func(match.Event)) error { return driveXML(br, emit) }, nil
	case JSON:
		return func(emit func(match.Event)) error { return driveJSON(br, emit) }, nil
	case Log:
		return func(emit func(match.Event)) error { return driveLog(br, emit) }, nil
	case CSV, TSV:
		delim := opts.Delimiter
		if delim == 0 {
			if format == TSV {
				delim = '\t'
			} else {
				delim = ','
			}
		}
		return func(emit func(match.Event)) error {
			return driveCSV(br, delim, opts.Header, emit)
		}, nil
	default:
		return nil, fmt.Errorf("input: unrecognized format")
	}
}

// detect inspects the first non-space byte: '<' is XML, '{'/'[' is JSON
// (unless the first bracketed token is date-shaped, in which case it's
// log), otherwise log or CSV by line shape. The consumed bytes are
// returned as a prefix to replay.
func detect(br *bufio.Reader) (Format, []byte, error) {
	var consumed []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return CSV, consumed, nil
			}
			return 0, nil, err
		}
		consumed = append(consumed, b)
		if isSpaceByte(b) {
			continue
		}
		switch b {
		case '<':
			return XML, consumed, nil
		case '{', '[':
			line, _ := br.Peek(256)
			if looksDateShaped(string(line)) {
				return Log, consumed, nil
			}
			return JSON, consumed, nil
		default:
			line, _ := br.ReadSlice('\n')
			consumed = append(consumed, line...)
			if bytes.ContainsRune(line, '\t') {
				return TSV, consumed, nil
			}
			if bytes.ContainsRune(line, ',') {
				return CSV, consumed, nil
			}
			return Log, consumed, nil
		}
	}
}

func isSpaceByte(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

func looksDateShaped(s string) bool {
	if len(s) > 40 {
		s = s[:40]
	}
	_, err := dateparse.ParseAny(s)
	return err == nil
}

// driveXML pushes a source onto an xmlscan.Scanner and translates tags
// and text into match.Events.
func driveXML(r io.Reader, emit func(match.Event)) error {
	sc := xmlscan.New(r)
	for {
		ev, err := sc.Next()
		if err != nil {
			return err
		}
		if ev.EOF {
			return nil
		}
		if ev.Text != "" {
			emit(match.Event{Kind: match.Text, Value: ev.Text})
			continue
		}
		tag := ev.Tag
		switch tag.Kind {
		case xmlscan.Start, xmlscan.SelfClosing:
			emit(match.Event{Kind: match.StartTag, Name: tag.Name, Line: tag.Line})
			for _, a := range tag.Attrs {
				emit(match.Event{Kind: match.Attribute, Name: a.Name, Value: a.Value})
			}
			if tag.Kind == xmlscan.SelfClosing {
				emit(match.Event{Kind: match.EndTag, Name: tag.Name})
			}
		case xmlscan.End:
			emit(match.Event{Kind: match.EndTag, Name: tag.Name})
		}
	}
}
