package client

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/leofalp/switchai/providers/ai"
)

// prepareChat applies the chat capability rules and returns the request that
// is actually sent, together with the coercions made to it.
func (c *Client) prepareChat(request ai.ChatRequest) (ai.ChatRequest, []ai.Warning, error) {
	if c.send == nil {
		return request, nil, c.unsupported(ai.OperationChat, request.Model)
	}
	if request.Model == "" {
		request.Model = c.model
	}
	if len(request.Messages) == 0 {
		return request, nil, ai.NewValidationError(c.provider.Name(), "messages", "at least one message is required")
	}
	if err := c.checkModel(ai.OperationChat, request.Model); err != nil {
		return request, nil, err
	}
	if request.HasImages() && !c.acceptsImages(c.capabilities.VisionModels, c.capabilities.SupportsVision, request.Model) {
		return request, nil, &ai.CapabilityError{Provider: c.provider.Name(), Model: request.Model, Operation: ai.OperationChat, Reason: "model does not accept images"}
	}
	if c.capabilities.RequiresMaxTokens && request.MaxTokens == nil {
		return request, nil, ai.NewValidationError(c.provider.Name(), "max_tokens", "%s requires max_tokens to be set", c.provider.Name())
	}

	var warnings []ai.Warning
	if limit := c.capabilities.MaxChoices; limit > 0 && request.Choices() > limit {
		warnings = append(warnings, c.coerce("n", request.Choices(), limit,
			fmt.Sprintf("%s returns at most %d choice(s) per request", c.provider.Name(), limit)))
		request.N = limit
	}
	return request, warnings, nil
}

// checkModel rejects a model the capability table lists under another
// operation. Unknown models are passed through.
func (c *Client) checkModel(operation ai.Operation, model string) error {
	if model == "" {
		return nil
	}
	listed, ok := c.capabilities.OperationOf(model)
	if !ok {
		attrs := []any{
			slog.String("model", model),
			slog.String("operation", string(operation)),
		}
		if suggestion := c.closestModel(model); suggestion != "" {
			attrs = append(attrs, slog.String("did_you_mean", suggestion))
		}
		c.logger.Debug("model not in capability table, passing through", attrs...)
		return nil
	}
	if listed != operation {
		return &ai.CapabilityError{Provider: c.provider.Name(), Model: model, Operation: operation, Reason: fmt.Sprintf("it is a %s model", listed)}
	}
	return nil
}

// closestModel returns the listed model nearest to model by edit distance,
// or "" when none is within a quarter of its length (at least 2 edits).
func (c *Client) closestModel(model string) string {
	limit := max(2, len(model)/4)
	best, bestDistance := "", limit+1
	for _, models := range c.capabilities.Models {
		for _, candidate := range models {
			if strings.Contains(candidate, "*") {
				continue
			}
			distance := edlib.LevenshteinDistance(model, candidate)
			if distance < bestDistance || (distance == bestDistance && candidate < best) {
				best, bestDistance = candidate, distance
			}
		}
	}
	return best
}

// acceptsImages reports whether model may receive image inputs. A provider
// without any image-capable model rejects images for every model; otherwise
// only known models missing from the list are rejected.
func (c *Client) acceptsImages(imageModels []string, supports func(model string) bool, model string) bool {
	if len(imageModels) == 0 {
		return false
	}
	if supports(model) {
		return true
	}
	_, known := c.capabilities.OperationOf(model)
	return !known
}

func (c *Client) unsupported(operation ai.Operation, model string) error {
	if model == "" {
		model = c.model
	}
	return &ai.CapabilityError{Provider: c.provider.Name(), Model: model, Operation: operation, Reason: "operation not implemented by the provider"}
}

// coerce logs a parameter coercion and returns the matching warning.
func (c *Client) coerce(parameter string, requested, applied any, message string) ai.Warning {
	c.logger.Warn("parameter coerced",
		slog.String("parameter", parameter),
		slog.Any("requested", requested),
		slog.Any("applied", applied),
		slog.String("reason", message),
	)
	return ai.Warning{Parameter: parameter, Requested: requested, Applied: applied, Message: message}
}
