package input

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rowql/rowql/match"
)

// driveJSON walks an encoding/json.Decoder's token stream and emits the
// same start-tag/text/end-tag events an XML document with equivalent
// nesting would produce: objects produce named tags, arrays produce
// repeated unnamed tags, and a reserved "_attr" property emits attribute
// events instead of a child tag.
//
// The event-contract translation itself is in CORE scope; the token
// decoder underneath it is stdlib encoding/json, since query semantics scope
// the JSON tokenizer's internals out of CORE and asks only that the
// event contract be produced.
func driveJSON(r *bufio.Reader, emit func(match.Event)) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("input: json: %w", err)
	}
	return driveJSONValue(dec, tok, "item", emit)
}

// driveJSONValue emits the tag pair (plus nested content) for one JSON
// value already read as tok, tagged with name.
func driveJSONValue(dec *json.Decoder, tok json.Token, name string, emit func(match.Event)) error {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			emit(match.Event{Kind: match.StartTag, Name: name})
			if err := driveJSONObject(dec, emit); err != nil {
				return err
			}
			emit(match.Event{Kind: match.EndTag, Name: name})
		case '[':
			emit(match.Event{Kind: match.StartTag, Name: name})
			if err := driveJSONArray(dec, name, emit); err != nil {
				return err
			}
			emit(match.Event{Kind: match.EndTag, Name: name})
		}
	case string:
		emit(match.Event{Kind: match.StartTag, Name: name})
		emit(match.Event{Kind: match.Text, Value: t})
		emit(match.Event{Kind: match.EndTag, Name: name})
	case json.Number:
		emit(match.Event{Kind: match.StartTag, Name: name})
		emit(match.Event{Kind: match.Text, Value: t.String()})
		emit(match.Event{Kind: match.EndTag, Name: name})
	case bool:
		emit(match.Event{Kind: match.StartTag, Name: name})
		if t {
			emit(match.Event{Kind: match.Text, Value: "true"})
		} else {
			emit(match.Event{Kind: match.Text, Value: "false"})
		}
		emit(match.Event{Kind: match.EndTag, Name: name})
	case nil:
		emit(match.Event{Kind: match.StartTag, Name: name})
		emit(match.Event{Kind: match.EndTag, Name: name})
	}
	return nil
}

// driveJSONObject consumes key/value pairs up to the matching '}'. A key
// named "_attr" expects an object value whose own keys/values become
// attribute events on the enclosing tag rather than child tags.
func driveJSONObject(dec *json.Decoder, emit func(match.Event)) error {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("input: json: %w", err)
		}
		key, _ := keyTok.(string)
		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("input: json: %w", err)
		}
		if key == "_attr" {
			if err := driveJSONAttrs(dec, valTok, emit); err != nil {
				return err
			}
			continue
		}
		if delim, ok := valTok.(json.Delim); ok && delim == '[' {
			if err := driveJSONArray(dec, key, emit); err != nil {
				return err
			}
			continue
		}
		if err := driveJSONValue(dec, valTok, key, emit); err != nil {
			return err
		}
	}
	// consume the closing '}'
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("input: json: %w", err)
	}
	return nil
}

// driveJSONAttrs reads the "_attr" object's key/value pairs as attribute
// events on the tag currently open on the matcher's stack.
func driveJSONAttrs(dec *json.Decoder, opening json.Token, emit func(match.Event)) error {
	delim, ok := opening.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("input: json: \"_attr\" must be an object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("input: json: %w", err)
		}
		key, _ := keyTok.(string)
		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("input: json: %w", err)
		}
		emit(match.Event{Kind: match.Attribute, Name: key, Value: fmt.Sprint(valTok)})
	}
	_, err := dec.Token() // closing '}'
	return err
}

// driveJSONArray emits one repeated unnamed (elementName) tag per array
// element.
func driveJSONArray(dec *json.Decoder, elementName string, emit func(match.Event)) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("input: json: %w", err)
		}
		if err := driveJSONValue(dec, tok, elementName, emit); err != nil {
			return err
		}
	}
	_, err := dec.Token() // closing ']'
	return err
}
