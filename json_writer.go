package indiaquant

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// jsonObjectWriter builds a JSON object with a fixed field order, which
// encoding/json's maps cannot guarantee. The price files depend on
// stable field order to stay git-friendly. Its zero value is ready to
// use.
type jsonObjectWriter struct {
	bytes.Buffer
	err error
}

// Append adds one key/value pair. The first error sticks and turns
// MarshalJSON into a no-op failure.
func (w *jsonObjectWriter) Append(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	k, err := json.Marshal(key)
	if err != nil {
		w.err = fmt.Errorf("cannot marshal key %q: %w", key, err)
		return w
	}
	v, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("cannot marshal value of %q: %w", key, err)
		return w
	}
	w.Write(k)
	w.WriteString(":")
	w.Write(v)
	w.WriteString(",")
	return w
}

// MarshalJSON terminates and returns the object.
func (w *jsonObjectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	b := w.Bytes()
	if n := len(b); n > 0 && b[n-1] == ',' {
		b = b[:n-1]
	}
	return append(append([]byte("{"), b...), '}'), nil
}
