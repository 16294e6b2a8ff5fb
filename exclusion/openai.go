package exclusion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// OPENAI CLASSIFIER - LLM-backed implementation
// =============================================================================

const classificationSystemPrompt = `You are a Brazilian labor-benefits analyst.
Given distinct job titles, employment statuses and leave reasons, decide for
each value whether workers carrying it are EXCLUDED from the monthly meal
voucher (VR) benefit under the collective agreements: statutory directors and
officers, interns, apprentices, workers assigned abroad, and leave types that
suspend the employment contract are excluded. Answer with JSON only, shaped
exactly like:
{"titles":[{"value":"...","exclude":true,"justification":"..."}],
 "statuses":[...],"reasons":[...]}
Include every input value exactly once in its list.`

// OpenAIClassifier delegates classification to a chat model. The response
// must be the JSON decision set; anything else is malformed output and
// fatal for the exclusion stage.
type OpenAIClassifier struct {
	client openai.Client
	model  openai.ChatModel
}

func NewOpenAIClassifier(apiKey string, model string) *OpenAIClassifier {
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	return &OpenAIClassifier{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.ChatModel(model),
	}
}

func (c *OpenAIClassifier) Name() string { return "openai" }

func (c *OpenAIClassifier) Classify(ctx context.Context, values DistinctValues) (*DecisionSet, error) {
	request, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(classificationSystemPrompt),
			openai.UserMessage(string(request)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", voucher.ErrClassifierUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", voucher.ErrMalformedDecision)
	}

	return parseDecisionJSON(completion.Choices[0].Message.Content)
}

// parseDecisionJSON decodes the model output, tolerating a fenced code
// block around the JSON but nothing else.
func parseDecisionJSON(content string) (*DecisionSet, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var decisions DecisionSet
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &decisions); err != nil {
		return nil, fmt.Errorf("%w: %v", voucher.ErrMalformedDecision, err)
	}
	if err := decisions.Validate(); err != nil {
		return nil, err
	}
	return &decisions, nil
}
