package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JonMunkholm/catalogrecon/internal/core"
)

// parseJSON reads an array of flat objects. Columns follow the order in
// which keys first appear. Strings are taken as is, numbers and booleans
// verbatim, null as empty, arrays as their elements joined with ", ", and
// nested objects as their JSON text.
func parseJSON(def core.SourceDefinition, name string, data []byte) (*core.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(sanitizeText(data)))

	if err := expectDelim(dec, '['); err != nil {
		return nil, fmt.Errorf("%w: expected an array of objects: %v", ErrInvalidJSON, err)
	}

	var header []string
	pos := make(map[string]int)
	var objects []map[string]string
	for dec.More() {
		keys, values, err := readObject(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidJSON, len(objects)+1, err)
		}
		obj := make(map[string]string, len(keys))
		for i, k := range keys {
			if _, ok := pos[k]; !ok {
				pos[k] = len(header)
				header = append(header, k)
			}
			obj[k] = values[i]
		}
		objects = append(objects, obj)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	rows := make([][]string, 0, len(objects))
	for _, obj := range objects {
		row := make([]string, len(header))
		for k, v := range obj {
			row[pos[k]] = v
		}
		rows = append(rows, row)
	}
	return core.NewTable(name, def.Kind, header, rows), nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("unexpected token %v", tok)
	}
	return nil
}

// readObject decodes one object, keeping its key order.
func readObject(dec *json.Decoder) ([]string, []string, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, nil, err
	}
	var keys, values []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("key %q: %w", key, err)
		}
		cell, err := jsonCell(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("key %q: %w", key, err)
		}
		keys = append(keys, key)
		values = append(values, cell)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

func jsonCell(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}
	switch raw[0] {
	case 'n':
		return "", nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return "", err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			s, err := jsonCell(item)
			if err != nil {
				return "", err
			}
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), nil
	}
	// numbers, booleans and nested objects keep their JSON text
	return string(raw), nil
}
