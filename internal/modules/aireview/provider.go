package aireview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	"github.com/openkb/review-core/internal/models"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"
)

const verdictMaxOutputTokens = 512

var errEmptyResponse = errors.New("empty response from AI")

func isOpenAICompatibleProvider(raw string) bool {
	t := normalizeProviderType(raw)
	return t == "openai-compatible" || t == "openaicompatible"
}

func isAnthropicProvider(raw string) bool {
	return normalizeProviderType(raw) == "anthropic"
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}

// callResult is the transport-level outcome of one provider round trip.
type callResult struct {
	raw              string
	promptTokens     int
	completionTokens int
}

// callModel sends one moderation prompt to the configured provider and returns
// the raw completion text. Token counts fall back to local estimates when the
// provider does not report usage.
func callModel(ctx context.Context, m *models.AIModelConfig, systemPrompt, userPrompt string) (*callResult, error) {
	if m == nil {
		return nil, errors.New("model config is nil")
	}

	if isOpenAICompatibleProvider(m.Provider) {
		return callOpenAICompatible(ctx, m, systemPrompt, userPrompt)
	}

	model, err := buildLanguageModel(m)
	if err != nil {
		return nil, err
	}

	resp, err := jetai.GenerateText(
		ctx,
		buildPromptMessages(systemPrompt, userPrompt),
		jetai.WithModel(model),
		jetai.WithMaxOutputTokens(verdictMaxOutputTokens),
		jetai.WithTemperature(m.Temperature),
	)
	if err != nil {
		return nil, err
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, err
	}
	return &callResult{
		raw:              text,
		promptTokens:     estimateTokens(systemPrompt + userPrompt),
		completionTokens: estimateTokens(text),
	}, nil
}

func callOpenAICompatible(ctx context.Context, m *models.AIModelConfig, systemPrompt, userPrompt string) (*callResult, error) {
	if strings.TrimSpace(m.APIKey) == "" {
		return nil, errors.New("model api key is empty")
	}

	endpoint := normalizeCompatibleEndpoint(m.Endpoint)
	modelID := strings.TrimSpace(m.ModelID)
	if modelID == "" {
		return nil, errors.New("model id is empty")
	}

	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, map[string]string{
			"role":    "system",
			"content": systemPrompt,
		})
	}
	messages = append(messages, map[string]string{
		"role":    "user",
		"content": userPrompt,
	})

	body, _ := json.Marshal(map[string]interface{}{
		"model":       modelID,
		"messages":    messages,
		"max_tokens":  verdictMaxOutputTokens,
		"temperature": m.Temperature,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(m.APIKey))
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &rateLimitError{body: strings.TrimSpace(string(respBody))}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("provider error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, err
	}
	if result.Error != nil && strings.TrimSpace(result.Error.Message) != "" {
		return nil, fmt.Errorf("provider error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return nil, errEmptyResponse
	}

	out := &callResult{
		raw:              result.Choices[0].Message.Content,
		promptTokens:     result.Usage.PromptTokens,
		completionTokens: result.Usage.CompletionTokens,
	}
	if out.promptTokens == 0 {
		out.promptTokens = estimateTokens(systemPrompt + userPrompt)
	}
	if out.completionTokens == 0 {
		out.completionTokens = estimateTokens(out.raw)
	}
	return out, nil
}

func buildLanguageModel(m *models.AIModelConfig) (jetapi.LanguageModel, error) {
	apiKey := strings.TrimSpace(m.APIKey)
	if apiKey == "" {
		return nil, errors.New("model api key is empty")
	}

	modelID := strings.TrimSpace(m.ModelID)
	if modelID == "" {
		return nil, errors.New("model id is empty")
	}
	endpoint := strings.TrimSpace(m.Endpoint)

	if isAnthropicProvider(m.Provider) {
		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(apiKey),
			anthropicoption.WithMaxRetries(0),
		}
		if endpoint != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
		}
		client := anthropicclient.NewClient(opts...)
		return jetanthropic.NewLanguageModel(modelID, jetanthropic.WithClient(client)), nil
	}

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if normalized := normalizeOpenAIBaseURL(endpoint); normalized != "" {
		opts = append(opts, openaioption.WithBaseURL(normalized))
	}
	client := openaiclient.NewClient(opts...)
	return jetopenai.NewLanguageModel(modelID, jetopenai.WithClient(client)), nil
}

func buildPromptMessages(systemPrompt, prompt string) []jetapi.Message {
	messages := make([]jetapi.Message, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, &jetapi.SystemMessage{Content: systemPrompt})
	}
	messages = append(messages, &jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)})
	return messages
}

func extractTextFromResponse(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", errEmptyResponse
	}

	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}

	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

// rateLimitError marks a provider-reported 429 so the selector can put the
// model into cooldown.
type rateLimitError struct {
	body string
}

func (e *rateLimitError) Error() string {
	return "provider rate limited: " + e.body
}

func isRateLimitError(err error) bool {
	var rle *rateLimitError
	if errors.As(err, &rle) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit")
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		if path == "" {
			path = "/v1"
		} else {
			path += "/v1"
		}
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}

func normalizeCompatibleEndpoint(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "https://api.openai.com"
	}

	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		cleaned := strings.TrimRight(base, "/")
		cleaned = strings.TrimSuffix(cleaned, "/v1")
		return cleaned
	}

	path := strings.TrimRight(parsed.Path, "/")
	path = strings.TrimSuffix(path, "/v1")
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}
