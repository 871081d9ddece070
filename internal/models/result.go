package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Field is a named scalar value preserving its position in the source record.
type Field struct {
	Name  string
	Value string
}

// Choices are the options the OCR service detected for one question. The service sends
// either strings or option indices, both are kept as text.
type Choices []string

// UnmarshalJSON accepts an array of strings or numbers, a single scalar, or null.
func (c *Choices) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*c = Choices{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] != '[' {
		text, err := scalarText(trimmed)
		if err != nil {
			return err
		}
		*c = Choices{text}
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("decode answer choices: %w", err)
	}
	out := make(Choices, 0, len(raw))
	for _, item := range raw {
		text, err := scalarText(item)
		if err != nil {
			return err
		}
		out = append(out, text)
	}
	*c = out
	return nil
}

// AnswerResult is the evaluation of one question on one sheet.
type AnswerResult struct {
	Answer Choices     `json:"answer"`
	Points json.Number `json:"points"`
}

// ResultRow is one student's evaluation as returned by the OCR service: scalar student
// fields in received order plus the per-question results in question order.
type ResultRow struct {
	Meta      []Field
	Result    []AnswerResult
	HasResult bool
}

// UnmarshalJSON decodes the row while keeping the order of the scalar keys.
func (r *ResultRow) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("result row must be an object")
	}
	row := ResultRow{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		if key == "result" {
			if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
				continue
			}
			if err := json.Unmarshal(raw, &row.Result); err != nil {
				return fmt.Errorf("decode result: %w", err)
			}
			row.HasResult = true
			continue
		}
		value, err := scalarText(raw)
		if err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		row.Meta = append(row.Meta, Field{Name: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = row
	return nil
}

// MarshalJSON writes the row back in the shape the OCR service uses.
func (r ResultRow) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, field := range r.Meta {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(field.Name)
		value, _ := json.Marshal(field.Value)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	if r.HasResult {
		if len(r.Meta) > 0 {
			buf.WriteByte(',')
		}
		result, err := json.Marshal(r.Result)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`"result":`)
		buf.Write(result)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EvaluationResponse is the OCR service reply.
type EvaluationResponse struct {
	Result []ResultRow `json:"result"`
	Log    string      `json:"log"`
}

// FlatResultRecord is one student's result with the per-question results expanded into
// answer{i}/points{i} columns. Keys keeps the column order.
type FlatResultRecord struct {
	Keys   []string
	Values map[string]string
}

// NewFlatResultRecord builds an empty record.
func NewFlatResultRecord() FlatResultRecord {
	return FlatResultRecord{Values: map[string]string{}}
}

// Get returns the column value.
func (r FlatResultRecord) Get(name string) (string, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// Set stores the value, appending the column when it is new.
func (r *FlatResultRecord) Set(name, value string) {
	if r.Values == nil {
		r.Values = map[string]string{}
	}
	if _, exists := r.Values[name]; !exists {
		r.Keys = append(r.Keys, name)
	}
	r.Values[name] = value
}

func scalarText(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		compact := &bytes.Buffer{}
		if err := json.Compact(compact, trimmed); err != nil {
			return "", err
		}
		return compact.String(), nil
	default:
		return strings.TrimSpace(string(trimmed)), nil
	}
}
