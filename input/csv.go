package input

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/rowql/rowql/match"
)

// driveCSV translates delimited rows into <table><row><col1>...</col1>
// ...</row>...</table>. Quoted-field embedded-newline tolerance and
// delimiter handling are encoding/csv's; the header-naming and
// positional-naming rules on top of it are rowql's own.
func driveCSV(r *bufio.Reader, delim rune, header bool, emit func(match.Event)) error {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	emit(match.Event{Kind: match.StartTag, Name: "table"})
	var colNames []string
	first := true
	for {
		rec, err := cr.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("input: csv: %w", err)
		}
		if first {
			first = false
			if header {
				colNames = make([]string, len(rec))
				for i, h := range rec {
					colNames[i] = sanitizeTagName(h, i)
				}
				continue
			}
			colNames = positionalNames(len(rec))
		}
		for len(colNames) < len(rec) {
			colNames = append(colNames, fmt.Sprintf("%d", len(colNames)+1))
		}
		emit(match.Event{Kind: match.StartTag, Name: "row"})
		for i, v := range rec {
			name := colNames[i]
			emit(match.Event{Kind: match.StartTag, Name: name})
			if v != "" {
				emit(match.Event{Kind: match.Text, Value: v})
			}
			emit(match.Event{Kind: match.EndTag, Name: name})
		}
		emit(match.Event{Kind: match.EndTag, Name: "row"})
	}
	emit(match.Event{Kind: match.EndTag, Name: "table"})
	return nil
}

var nonNameByteRE = regexp.MustCompile(`[^A-Za-z0-9_]`)

// sanitizeTagName replaces XML-hostile characters in a header cell with
// underscores so it can be used as a tag name. An empty name falls back
// to its 1-based position; a wholly-hostile name becomes all underscores.
func sanitizeTagName(name string, idx int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Sprintf("%d", idx+1)
	}
	sanitized := nonNameByteRE.ReplaceAllString(name, "_")
	if sanitized[0] >= '0' && sanitized[0] <= '9' {
		sanitized = "_" + sanitized
	}
	return sanitized
}

func positionalNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%d", i+1)
	}
	return out
}
