package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Filter matches accounts whose encoded field equals Value.
type Filter struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Fetch returns the raw encoded account of kind at address.
func (l *Ledger) Fetch(kind Kind, address string) (json.RawMessage, error) {
	key, err := l.stateKey(kind, address)
	if err != nil {
		return nil, err
	}
	b, err := l.stub.GetState(key)
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	if b == nil {
		return nil, ErrAccountNotFound
	}
	return json.RawMessage(b), nil
}

// List scans every account of kind and returns those matching all filters.
func (l *Ledger) List(kind Kind, filters ...Filter) ([]json.RawMessage, error) {
	it, err := l.stub.GetStateByPartialCompositeKey(string(kind), []string{})
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", kind, err)
	}
	defer it.Close()

	out := make([]json.RawMessage, 0)
	for it.HasNext() {
		kv, err := it.Next()
		if err != nil {
			return nil, fmt.Errorf("next %s: %w", kind, err)
		}
		ok, err := matches(kv.Value, filters)
		if err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", kind, kv.Key, err)
		}
		if ok {
			out = append(out, json.RawMessage(kv.Value))
		}
	}
	return out, nil
}

func matches(value []byte, filters []Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return false, err
	}
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok || fmt.Sprint(v) != f.Value {
			return false, nil
		}
	}
	return true, nil
}
