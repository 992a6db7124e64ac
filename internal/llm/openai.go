package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/pkoukk/tiktoken-go"
)

// OpenAICapability adapts the openai-go/v3 SDK to Capability. This is
// the pipeline's primary LLM capability, grounded on
// Tangerg-lynx/ai's and /providers' use of openai-go/v3 as their chat
// model provider.
type OpenAICapability struct {
	client *openai.Client
	model  string
	tk     *tiktoken.Tiktoken
}

// NewOpenAICapability builds an OpenAICapability for model (e.g.
// "gpt-4o-mini"), using the given API key.
func NewOpenAICapability(apiKey, model string) (*OpenAICapability, error) {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("llm: load tokenizer: %w", err)
		}
	}
	return &OpenAICapability{client: &client, model: model, tk: enc}, nil
}

func (o *OpenAICapability) Generate(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: buildMessages(req),
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrPermanent)
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAICapability) GenerateStream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		params := openai.ChatCompletionNewParams{
			Model:    o.model,
			Messages: buildMessages(req),
		}
		stream := o.client.Chat.Completions.NewStreaming(ctx, params)
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if !yield(chunk.Choices[0].Delta.Content, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", classifyOpenAIError(err))
		}
	}
}

func (o *OpenAICapability) CountTokens(text string) int {
	return len(o.tk.Encode(text, nil, nil))
}

func buildMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	var msgs []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))
	return msgs
}

// classifyOpenAIError maps an SDK error to the transient/permanent
// split of spec §7: rate limits and 5xx are transient, everything else
// is treated as permanent.
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
