package client

import (
	"context"
	"fmt"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

// StructuredResponse is a chat response whose first choice was decoded into T.
type StructuredResponse[T any] struct {
	*ai.ChatResponse
	Data T
}

// StructuredClient wraps a Client and decodes every answer into T. The JSON
// schema of T is derived once and sent as the request's ResponseSchema,
// unless the request carries its own.
//
// Example:
//
//	type Verdict struct {
//	    Label      string  `json:"label" jsonschema:"enum=positive,enum=negative"`
//	    Confidence float64 `json:"confidence"`
//	}
//
//	classifier, err := client.NewStructured[Verdict]("openai", "gpt-4o-mini")
//	resp, err := classifier.Chat(ctx, ai.ChatRequest{Messages: messages})
//	fmt.Println(resp.Data.Label)
type StructuredClient[T any] struct {
	client *Client
	schema ai.Schema
}

// FromBaseClient wraps base for structured output of type T.
func FromBaseClient[T any](base *Client) (*StructuredClient[T], error) {
	if base == nil {
		return nil, fmt.Errorf("base client must not be nil")
	}
	schema, err := ai.SchemaFor[T]()
	if err != nil {
		return nil, fmt.Errorf("failed to derive schema: %w", err)
	}
	return &StructuredClient[T]{client: base, schema: schema}, nil
}

// NewStructured creates a Client with [New] and wraps it for type T.
func NewStructured[T any](providerName, model string, opts ...func(*ClientOptions)) (*StructuredClient[T], error) {
	base, err := New(providerName, model, opts...)
	if err != nil {
		return nil, err
	}
	return FromBaseClient[T](base)
}

// Schema returns the schema derived from T.
func (sc *StructuredClient[T]) Schema() ai.Schema {
	return sc.schema
}

// Chat sends request and decodes the first choice's content into T.
func (sc *StructuredClient[T]) Chat(ctx context.Context, request ai.ChatRequest) (*StructuredResponse[T], error) {
	if request.ResponseSchema == nil {
		request.ResponseSchema = sc.schema
	}

	response, err := sc.client.Chat(ctx, request)
	if err != nil {
		return nil, err
	}

	choice, ok := response.FirstChoice()
	if !ok {
		return nil, ai.MissingField(sc.client.provider.Name(), "choices.0")
	}
	data, err := utils.ParseStringAs[T](choice.Message.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse structured output: %w", err)
	}

	return &StructuredResponse[T]{ChatResponse: response, Data: data}, nil
}
