package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	stderrors "errors"

	"medassist/internal/errors"
	"medassist/internal/ids"
	"medassist/internal/logging"
)

const defaultRequestTimeout = 5 * time.Minute

// maxStreamLineSize bounds a single SSE line from the provider. Some models
// emit very long tool-argument chunks.
const maxStreamLineSize = 10 * 1024 * 1024

// OpenAIClient speaks the OpenAI-compatible chat completions API. All three
// model classes use this client, pointed at different base URLs.
type OpenAIClient struct {
	model   string
	baseURL string
	apiKey  string
	http    *http.Client
	logger  logging.Logger
}

// NewOpenAIClient builds a client for one configured model endpoint.
func NewOpenAIClient(model, baseURL, apiKey string) *OpenAIClient {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIClient{
		model:   model,
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultRequestTimeout},
		logger:  logging.NewComponentLogger("LLM"),
	}
}

// Model returns the model identifier.
func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) buildRequestBody(req CompletionRequest, stream bool) ([]byte, error) {
	oaiReq := map[string]any{
		"model":    c.model,
		"messages": c.convertMessages(req.Messages),
		"stream":   stream,
	}
	if req.Temperature > 0 {
		oaiReq["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		oaiReq["max_tokens"] = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		oaiReq["tools"] = convertTools(req.Tools)
		oaiReq["tool_choice"] = "auto"
	}
	return json.Marshal(oaiReq)
}

func (c *OpenAIClient) convertMessages(msgs []Message) []map[string]any {
	out := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		entry := map[string]any{"role": m.Role, "content": m.Content}
		if m.Name != "" {
			entry["name"] = m.Name
		}
		out = append(out, entry)
	}
	return out
}

func convertTools(tools []ToolSchema) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return out
}

func (c *OpenAIClient) doPost(ctx context.Context, body []byte) (*http.Response, error) {
	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	requestID := ids.NewRequestID()
	httpReq.Header.Set("X-Request-ID", requestID)
	if wf := ids.WorkflowID(ctx); wf != "" {
		c.logger.Debug("Request %s model=%s workflow=%s", requestID, c.model, wf)
	} else {
		c.logger.Debug("Request %s model=%s", requestID, c.model)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewTransientError(err, "LLM request failed")
	}
	return resp, nil
}

func mapHTTPError(statusCode int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var envelope struct {
		Error *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		msg = envelope.Error.Message
		if envelope.Error.Type != "" {
			msg = envelope.Error.Type + ": " + msg
		}
	}
	return errors.FromHTTPStatus(statusCode, fmt.Errorf("llm: status %d: %s", statusCode, msg))
}

// Complete sends a non-streaming completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	body, err := c.buildRequestBody(req, false)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Debug("POST %s/chat/completions model=%s messages=%d", c.baseURL, c.model, len(req.Messages))

	resp, err := c.doPost(ctx, body)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapHTTPError(resp.StatusCode, respBody)
	}

	var oaiResp struct {
		ID      string `json:"id"`
		Choices []struct {
			Message struct {
				Content          string `json:"content"`
				ReasoningContent string `json:"reasoning_content"`
				ToolCalls        []struct {
					ID       string `json:"id"`
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(oaiResp.Choices) == 0 {
		return nil, errors.NewTransientError(stderrors.New("no choices in response"), "LLM returned an empty response")
	}

	choice := oaiResp.Choices[0]
	result := &CompletionResponse{
		MessageID:        messageID(oaiResp.ID),
		Content:          choice.Message.Content,
		ReasoningContent: choice.Message.ReasoningContent,
		StopReason:       choice.FinishReason,
		Usage: TokenUsage{
			PromptTokens:     oaiResp.Usage.PromptTokens,
			CompletionTokens: oaiResp.Usage.CompletionTokens,
			TotalTokens:      oaiResp.Usage.TotalTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			c.logger.Debug("Failed to parse tool call arguments: %v", err)
			continue
		}
		result.ToolCalls = append(result.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	return result, nil
}

// Stream sends a streaming request, invoking callbacks per delta while
// accumulating the full response.
func (c *OpenAIClient) Stream(ctx context.Context, req CompletionRequest, callbacks StreamCallbacks) (*CompletionResponse, error) {
	body, err := c.buildRequestBody(req, true)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Debug("POST %s/chat/completions (stream) model=%s messages=%d", c.baseURL, c.model, len(req.Messages))

	resp, err := c.doPost(ctx, body)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("read response: %w", readErr)
		}
		return nil, mapHTTPError(resp.StatusCode, respBody)
	}

	type toolCallDelta struct {
		Index    int    `json:"index"`
		ID       string `json:"id"`
		Function struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		} `json:"function"`
	}
	type streamChunk struct {
		ID      string `json:"id"`
		Choices []struct {
			Delta struct {
				Content          string          `json:"content"`
				ReasoningContent string          `json:"reasoning_content"`
				ToolCalls        []toolCallDelta `json:"tool_calls"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	type toolAccumulator struct {
		id        string
		name      string
		arguments strings.Builder
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxStreamLineSize)

	toolAccumulators := make(map[int]*toolAccumulator)
	var toolOrder []int

	var contentBuilder, reasoningBuilder strings.Builder
	usage := TokenUsage{}
	finishReason := ""
	msgID := ""
	// The same id must be attached to every delta even when the provider
	// omits one.
	ensureID := func() string {
		if msgID == "" {
			msgID = ids.NewMessageID()
		}
		return msgID
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			c.logger.Debug("Failed to decode stream chunk: %v", err)
			continue
		}
		if msgID == "" && chunk.ID != "" {
			msgID = chunk.ID
		}
		if chunk.Usage != nil {
			usage = TokenUsage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			finishReason = *choice.FinishReason
		}
		if text := choice.Delta.Content; text != "" {
			contentBuilder.WriteString(text)
			if callbacks.OnContentDelta != nil {
				callbacks.OnContentDelta(ContentDelta{MessageID: ensureID(), Content: text})
			}
		}
		if reasoning := choice.Delta.ReasoningContent; reasoning != "" {
			reasoningBuilder.WriteString(reasoning)
			if callbacks.OnContentDelta != nil {
				callbacks.OnContentDelta(ContentDelta{MessageID: ensureID(), ReasoningContent: reasoning})
			}
		}
		for _, tc := range choice.Delta.ToolCalls {
			acc, ok := toolAccumulators[tc.Index]
			if !ok {
				acc = &toolAccumulator{}
				toolAccumulators[tc.Index] = acc
				toolOrder = append(toolOrder, tc.Index)
			}
			if tc.ID != "" {
				acc.id = tc.ID
			}
			if tc.Function.Name != "" {
				acc.name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				acc.arguments.WriteString(tc.Function.Arguments)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewTransientError(fmt.Errorf("read response stream: %w", err), "LLM stream interrupted")
	}

	if callbacks.OnContentDelta != nil {
		callbacks.OnContentDelta(ContentDelta{MessageID: ensureID(), Final: true})
	}

	result := &CompletionResponse{
		MessageID:        ensureID(),
		Content:          contentBuilder.String(),
		ReasoningContent: reasoningBuilder.String(),
		StopReason:       finishReason,
		Usage:            usage,
	}
	for _, idx := range toolOrder {
		acc := toolAccumulators[idx]
		var args map[string]any
		if acc.arguments.Len() > 0 {
			if err := json.Unmarshal([]byte(acc.arguments.String()), &args); err != nil {
				c.logger.Debug("Failed to parse tool call arguments: %v", err)
			}
		}
		result.ToolCalls = append(result.ToolCalls, ToolCall{ID: acc.id, Name: acc.name, Arguments: args})
	}
	return result, nil
}

// messageID falls back to a locally generated id when the provider omits one.
func messageID(providerID string) string {
	if providerID != "" {
		return providerID
	}
	return ids.NewMessageID()
}
