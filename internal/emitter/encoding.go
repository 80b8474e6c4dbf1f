package emitter

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Supported event encodings
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

// Encode marshals v with the named encoding
func Encode(encoding string, v any) ([]byte, error) {
	switch encoding {
	case EncodingJSON, "":
		return json.Marshal(v)
	case EncodingMsgpack:
		return msgpack.Marshal(v)
	default:
		return nil, fmt.Errorf("unknown encoding: %s", encoding)
	}
}
