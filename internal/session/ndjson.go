package session

import (
	"bytes"
	"encoding/json"
)

// marshalLine encodes v as one NDJSON line. HTML characters are left
// unescaped so generated text reaches the client as produced.
func marshalLine(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
