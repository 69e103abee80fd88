package dispatcher

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/shoperr"
)

// payload reads loosely typed fields from an action payload, collecting
// type problems per field. Classifiers often emit numbers as strings and
// phones as numbers, so both spellings are accepted.
type payload struct {
	fields   map[string]json.RawMessage
	problems []shoperr.FieldError
}

// parsePayload accepts an object; absent or null payloads read as {}.
func parsePayload(raw json.RawMessage) (*payload, error) {
	p := &payload{fields: map[string]json.RawMessage{}}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return p, nil
	}
	if trimmed[0] != '{' {
		return nil, shoperr.Validation(shoperr.FieldError{Field: "payload", Message: "must be an object"})
	}
	if err := json.Unmarshal(trimmed, &p.fields); err != nil {
		return nil, shoperr.Validation(shoperr.FieldError{Field: "payload", Message: "malformed JSON"})
	}
	return p, nil
}

func (p *payload) fail(field, msg string) {
	p.problems = append(p.problems, shoperr.FieldError{Field: field, Message: msg})
}

func (p *payload) raw(name string) (json.RawMessage, bool) {
	v, ok := p.fields[name]
	if !ok {
		return nil, false
	}
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return nil, false
	}
	return v, true
}

// Text returns a string field; JSON numbers are rendered as written.
func (p *payload) Text(name string) string {
	v, ok := p.raw(name)
	if !ok {
		return ""
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			p.fail(name, "must be a string")
			return ""
		}
		return s
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		p.fail(name, "must be a string")
		return ""
	}
	return n.String()
}

// Number returns a numeric field, parsing numeric strings. Absent fields are zero.
func (p *payload) Number(name string) float64 {
	v, ok := p.raw(name)
	if !ok {
		return 0
	}
	s := string(v)
	if v[0] == '"' {
		if err := json.Unmarshal(v, &s); err != nil {
			p.fail(name, "must be a number")
			return 0
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.fail(name, "must be a number")
		return 0
	}
	return f
}

// Int returns a whole-number field.
func (p *payload) Int(name string) int {
	f := p.Number(name)
	if math.Abs(f) > 1<<53 {
		p.fail(name, "is out of range")
		return 0
	}
	if f != math.Trunc(f) {
		p.fail(name, "must be a whole number")
		return 0
	}
	return int(f)
}

// Err reports every type problem seen so far.
func (p *payload) Err() error {
	return shoperr.Validation(p.problems...)
}
