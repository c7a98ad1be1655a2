package postgres

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lalith-99/potluck/internal/docstore"
)

// timeKey tags an encoded timestamp. Timestamps are stored as
// {"$t": <unix micros>} so jsonb ordering compares them numerically.
const timeKey = "$t"

func encode(f docstore.Fields) (string, error) {
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = toJSON(v)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(b), nil
}

// encodeValue renders a single filter value as a jsonb literal.
func encodeValue(v any) (string, error) {
	b, err := json.Marshal(toJSON(v))
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	return string(b), nil
}

func toJSON(v any) any {
	switch t := v.(type) {
	case time.Time:
		return map[string]any{timeKey: t.UnixMicro()}
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = toJSON(e)
		}
		return out
	case docstore.Fields:
		return toJSON(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toJSON(e)
		}
		return out
	}
	return v
}

func decode(raw []byte) (docstore.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	out := make(docstore.Fields, len(m))
	for k, v := range m {
		out[k] = fromJSON(v)
	}
	return out, nil
}

func fromJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		if len(t) == 1 {
			if n, ok := t[timeKey].(json.Number); ok {
				if micros, err := n.Int64(); err == nil {
					return time.UnixMicro(micros).UTC()
				}
			}
		}
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = fromJSON(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromJSON(e)
		}
		return out
	}
	return v
}
