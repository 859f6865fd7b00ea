package input

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"

	"github.com/araddon/dateparse"

	"github.com/rowql/rowql/match"
)

// logRecord is the tentative {datetime, level, category, message} shape
// one leading-dated line splits into.
type logRecord struct {
	DateTime string
	Level    string
	Category string
	Message  string
}

// driveLog implements the log adapter: leading-dated lines start a new
// record, other lines continue the previous record's message; TRACE-level
// START/END/ROOT category tokens manipulate a stack of logical tags so a
// flat log can express nested structure, and JSON objects embedded in a
// message are extracted and driven as nested tags.
func driveLog(r *bufio.Reader, emit func(match.Event)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	emit(match.Event{Kind: match.StartTag, Name: "log"})
	var stack []string
	var current *logRecord
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		if rec, ok := parseLogLine(text); ok {
			if current != nil {
				emitLogRecord(*current, &stack, emit)
			}
			current = &rec
		} else if current != nil {
			current.Message = current.Message + "\n" + text
		} else {
			current = &logRecord{Message: text}
		}
	}
	if current != nil {
		emitLogRecord(*current, &stack, emit)
	}
	for i := len(stack) - 1; i >= 0; i-- {
		emit(match.Event{Kind: match.EndTag, Name: stack[i]})
	}
	emit(match.Event{Kind: match.EndTag, Name: "log"})
	return scanner.Err()
}

// parseLogLine tries the leading one or two whitespace fields as a
// date-shaped prefix (a bare date, or a date plus a separate time field).
// The first success wins; anything that doesn't parse this way is a
// continuation line, not a new record.
func parseLogLine(line string) (logRecord, bool) {
	fields := splitLogFields(line)
	if len(fields) == 0 {
		return logRecord{}, false
	}
	for n := 2; n >= 1; n-- {
		if n > len(fields) {
			continue
		}
		candidate := strings.Join(fields[:n], " ")
		if _, err := dateparse.ParseAny(candidate); err != nil {
			continue
		}
		rest := fields[n:]
		var level, category string
		if len(rest) > 0 {
			level = strings.Trim(rest[0], "[]")
			rest = rest[1:]
		}
		if len(rest) > 0 {
			category = rest[0]
			rest = rest[1:]
		}
		return logRecord{
			DateTime: candidate,
			Level:    level,
			Category: category,
			Message:  strings.Join(rest, " "),
		}, true
	}
	return logRecord{}, false
}

// splitLogFields splits on whitespace but keeps a "[...]" run as one
// field, so a bracketed level like "[INFO]" survives as a single token.
func splitLogFields(line string) []string {
	var fields []string
	i := 0
	for i < len(line) {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		if i >= len(line) {
			break
		}
		if line[i] == '[' {
			if end := strings.IndexByte(line[i:], ']'); end >= 0 {
				fields = append(fields, line[i:i+end+1])
				i += end + 1
				continue
			}
		}
		j := i
		for j < len(line) && line[j] != ' ' {
			j++
		}
		fields = append(fields, line[i:j])
		i = j
	}
	return fields
}

// emitLogRecord drives one parsed record into the tag stream. A TRACE-
// level ROOT/START/END category manipulates stack instead of emitting a
// plain record tag.
func emitLogRecord(rec logRecord, stack *[]string, emit func(match.Event)) {
	if strings.EqualFold(rec.Level, "TRACE") {
		switch strings.ToUpper(rec.Category) {
		case "ROOT":
			for len(*stack) > 0 {
				emit(match.Event{Kind: match.EndTag, Name: (*stack)[len(*stack)-1]})
				*stack = (*stack)[:len(*stack)-1]
			}
			name := strings.TrimSpace(rec.Message)
			if name == "" {
				name = "root"
			}
			emit(match.Event{Kind: match.StartTag, Name: name})
			*stack = append(*stack, name)
			return
		case "START":
			name := strings.TrimSpace(rec.Message)
			if name == "" {
				name = "node"
			}
			emit(match.Event{Kind: match.StartTag, Name: name})
			*stack = append(*stack, name)
			return
		case "END":
			name := strings.TrimSpace(rec.Message)
			if len(*stack) > 0 && (name == "" || (*stack)[len(*stack)-1] == name) {
				emit(match.Event{Kind: match.EndTag, Name: (*stack)[len(*stack)-1]})
				*stack = (*stack)[:len(*stack)-1]
			}
			return
		}
	}

	emit(match.Event{Kind: match.StartTag, Name: "record"})
	emitLeaf("datetime", rec.DateTime, emit)
	emitLeaf("level", rec.Level, emit)
	emitLeaf("category", rec.Category, emit)
	msg, fragments := extractEmbeddedJSON(rec.Message)
	emitLeaf("message", msg, emit)
	for _, frag := range fragments {
		driveJSONFragment(frag, emit)
	}
	emit(match.Event{Kind: match.EndTag, Name: "record"})
}

func emitLeaf(name, value string, emit func(match.Event)) {
	emit(match.Event{Kind: match.StartTag, Name: name})
	if value != "" {
		emit(match.Event{Kind: match.Text, Value: value})
	}
	emit(match.Event{Kind: match.EndTag, Name: name})
}

// extractEmbeddedJSON scans msg for brace-balanced substrings that parse
// as JSON; each one is extracted and emitted as a nested tag rather than
// left as literal message text. Non-JSON text is left in place.
func extractEmbeddedJSON(msg string) (string, [][]byte) {
	if !strings.ContainsRune(msg, '{') {
		return msg, nil
	}
	var frags [][]byte
	var out strings.Builder
	i := 0
	for i < len(msg) {
		if msg[i] == '{' {
			depth := 0
			j := i
			for j < len(msg) {
				switch msg[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				j++
				if depth == 0 {
					break
				}
			}
			if depth == 0 {
				candidate := msg[i:j]
				var v interface{}
				if json.Unmarshal([]byte(candidate), &v) == nil {
					frags = append(frags, []byte(candidate))
					i = j
					continue
				}
			}
		}
		out.WriteByte(msg[i])
		i++
	}
	return strings.TrimSpace(out.String()), frags
}

// driveJSONFragment drives one embedded JSON object as a nested "data"
// tag using the same object/array translation as the top-level JSON
// adapter.
func driveJSONFragment(raw []byte, emit func(match.Event)) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return
	}
	_ = driveJSONValue(dec, tok, "data", emit)
}
