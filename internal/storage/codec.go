package storage

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
)

func init() {
	// Operation.Data is a map[string]interface{}; gob needs every concrete
	// type that might ride inside an interface{} value registered up
	// front so Account/Operation round-trip losslessly.
	gob.Register(int(0))
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register(string(""))
	gob.Register(bool(false))
	gob.Register([]interface{}{})
	gob.Register(map[string]interface{}{})
	gob.Register(json.Number(""))
}

// Encode serializes v with gob. gob round-trips Go structs and maps
// (including map[string]interface{} payloads) natively, which is what
// spec.md requires for Account/Operation — unlike JSON, it preserves
// int vs. float64 identity inside interface{} values.
func Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes data into out, which must be a pointer to the
// same concrete type passed to Encode.
func Decode(data []byte, out interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(out)
}
