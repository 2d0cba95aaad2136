package registry

import (
	"encoding/json"
	"testing"

	"github.com/prestalink/prestalink-backend/pkg/enums"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventLowBalance, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	input := json.RawMessage(`{"credit_type":"client"}`)
	output, err := reg.Decode(enums.EventLowBalance, 1, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outMap, ok := output.(map[string]string); !ok || outMap["credit_type"] != "client" {
		t.Fatalf("unexpected output %+v", output)
	}
}
