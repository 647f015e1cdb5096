package workflow

import (
	"context"

	"medassist/internal/llm"
)

// streamWorkerLLM wraps one streaming LLM call in the projector's LLM
// bracket, forwarding deltas as message events.
func streamWorkerLLM(ctx context.Context, deps *Deps, worker string, class llm.Class, deepThinking bool, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	client, err := deps.Models.Select(class, deepThinking)
	if err != nil {
		return nil, err
	}
	if err := deps.Projector.LLMStarted(ctx, worker); err != nil {
		return nil, err
	}

	var deltaErr error
	resp, err := client.Stream(ctx, req, llm.StreamCallbacks{
		OnContentDelta: func(d llm.ContentDelta) {
			if deltaErr == nil {
				deltaErr = deps.Projector.OnDelta(ctx, d)
			}
		},
	})

	if endErr := deps.Projector.LLMEnded(ctx, worker); endErr != nil && err == nil {
		err = endErr
	}
	if err != nil {
		return nil, err
	}
	if deltaErr != nil {
		return nil, deltaErr
	}
	return resp, nil
}
