package server

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/chazu/intcode/pkg/intcode"
)

// jsonCodec lets Connect carry plain Go structs as JSON. It registers under
// the name "json", replacing the protobuf JSON codec for these handlers.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}

// Program is an Intcode program in a request. It decodes from either a JSON
// array of integers or a string of comma-separated program text.
type Program []int64

func (p *Program) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*p = nil
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		prog, err := intcode.ParseProgram(text)
		if err != nil {
			return err
		}
		*p = prog
		return nil
	}
	var words []int64
	if err := json.Unmarshal(data, &words); err != nil {
		return fmt.Errorf("program must be a string or an array of integers: %w", err)
	}
	*p = words
	return nil
}
