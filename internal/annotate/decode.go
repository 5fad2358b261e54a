package annotate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/pj/schema"
)

// stripFences removes a surrounding ```json or ``` fence and anything after the last closing brace.
func stripFences(content string) (string, error) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	end := strings.LastIndexByte(s, '}')
	if end < 0 {
		return "", errors.New("no closing brace in response")
	}
	return s[:end+1], nil
}

// decodeObject decodes model output into v, which must be a JSON object.
// Every failure is a parse CallError.
func decodeObject(content string, v any) error {
	cleaned, err := stripFences(content)
	if err != nil {
		return &schema.CallError{Kind: schema.FailureParse, Err: err}
	}
	if !strings.HasPrefix(cleaned, "{") {
		return &schema.CallError{Kind: schema.FailureParse, Err: errors.New("response is not a JSON object")}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	if err := dec.Decode(v); err != nil {
		return &schema.CallError{Kind: schema.FailureParse, Err: err}
	}
	if dec.More() {
		return &schema.CallError{Kind: schema.FailureParse, Err: fmt.Errorf("unexpected data after JSON object at offset %d", dec.InputOffset())}
	}
	return nil
}
