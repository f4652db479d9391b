package connectutil

import (
	"encoding/json"
	"fmt"
)

// JSONCodec lets Connect carry plain Go structs as application/json without
// generated protobuf types. It registers under the "json" name, replacing
// Connect's protojson codec.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("json codec: marshal %T: %w", msg, err)
	}
	return b, nil
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("json codec: unmarshal %T: %w", msg, err)
	}
	return nil
}
