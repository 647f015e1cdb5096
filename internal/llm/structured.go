package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"medassist/internal/errors"
	"medassist/internal/logging"
)

var structuredLogger = logging.NewComponentLogger("LLM")

// ExtractJSON pulls the first JSON object out of model output, stripping
// markdown fences and surrounding prose.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
	} else if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+len("```"):]
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	open := s[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}
	end := strings.LastIndexByte(s, close)
	if end > start {
		return s[start : end+1]
	}
	return s[start:]
}

// DecodeStructured parses model output into out, repairing malformed JSON
// first. Returns a SchemaError when even the repaired text does not decode.
func DecodeStructured(raw string, out any) error {
	extracted := ExtractJSON(raw)
	if err := json.Unmarshal([]byte(extracted), out); err == nil {
		return nil
	}

	structuredLogger.Debug("Malformed JSON from model, attempting repair (%d bytes)", len(extracted))
	fixed, repairErr := jsonrepair.JSONRepair(extracted)
	if repairErr != nil {
		return errors.NewSchemaError("json object", raw, repairErr)
	}
	if err := json.Unmarshal([]byte(fixed), out); err != nil {
		return errors.NewSchemaError("json object", raw, err)
	}
	return nil
}

// InvokeStructured runs a completion expected to yield JSON matching T. On a
// schema failure it retries once with a corrective message appended, then
// gives up with the SchemaError.
func InvokeStructured[T any](ctx context.Context, client Client, req CompletionRequest) (*T, string, error) {
	resp, err := client.Complete(ctx, req)
	if err != nil {
		return nil, "", err
	}

	var out T
	if err := DecodeStructured(resp.Content, &out); err == nil {
		return &out, resp.Content, nil
	} else if !errors.IsSchema(err) {
		return nil, resp.Content, err
	}

	structuredLogger.Warn("Structured output failed to parse, retrying with corrective prompt (model=%s)", client.Model())

	retryReq := req
	retryReq.Messages = append(append([]Message(nil), req.Messages...),
		Message{Role: "assistant", Content: resp.Content},
		Message{Role: "user", Content: "The previous reply was not valid JSON. Respond again with only the JSON object, no prose and no code fences."},
	)
	retryResp, err := client.Complete(ctx, retryReq)
	if err != nil {
		return nil, resp.Content, err
	}
	if err := DecodeStructured(retryResp.Content, &out); err != nil {
		return nil, retryResp.Content, fmt.Errorf("structured invoke: %w", err)
	}
	return &out, retryResp.Content, nil
}
