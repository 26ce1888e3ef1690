package fetcher

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// ReadJSON reads a whole JSON document and returns it compacted. Invalid
// JSON is an error.
func ReadJSON(r io.Reader) (json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "json: read body")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, eris.Wrap(err, "json: invalid document")
	}
	return json.RawMessage(buf.Bytes()), nil
}
