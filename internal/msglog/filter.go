package msglog

import (
	"encoding/json"
	"strings"

	"github.com/google/cel-go/cel"
)

// FilteredReader wraps a MessageReader behind a CEL expression. Only
// messages for which the expression evaluates to true reach the inner
// reader; evaluation errors drop the message.
//
// Available variables:
//
//	sender  string  message sender id
//	ts_us   int     message timestamp in microseconds
//	size    int     payload size in bytes
//	text    string  payload as a string
//	json    dyn     payload parsed as JSON, or null when not JSON
type FilteredReader struct {
	inner   MessageReader
	prog    cel.Program
	enabled bool
}

// NewFilteredReader compiles expr and wraps inner. An empty expression
// disables filtering.
func NewFilteredReader(expr string, inner MessageReader) (*FilteredReader, error) {
	if inner == nil {
		return nil, invalidArgf("nil reader")
	}
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &FilteredReader{inner: inner}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("sender", cel.StringType),
		cel.Variable("ts_us", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("text", cel.StringType),
		cel.Variable("json", cel.DynType),
	)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	prog, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return &FilteredReader{inner: inner, prog: prog, enabled: true}, nil
}

// Process implements MessageReader.
func (f *FilteredReader) Process(msg Message) error {
	if !f.matches(msg) {
		return nil
	}
	return f.inner.Process(msg)
}

func (f *FilteredReader) matches(msg Message) bool {
	if !f.enabled {
		return true
	}
	var jsonObj any
	_ = json.Unmarshal(msg.Payload, &jsonObj)
	out, _, err := f.prog.Eval(map[string]any{
		"sender": msg.SenderID,
		"ts_us":  msg.TimestampMicros,
		"size":   int64(len(msg.Payload)),
		"text":   string(msg.Payload),
		"json":   jsonObj,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
