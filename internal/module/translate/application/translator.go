package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	tasksdomain "github.com/jinford/autoview/internal/module/tasks/domain"
	"github.com/jinford/autoview/internal/module/translate/domain"
)

const (
	// translateTemperature は変換の揺らぎを抑えるための低い温度設定
	translateTemperature = 0.1

	// translateMaxTokens はフィルタJSONの生成に十分なトークン数
	translateMaxTokens = 256
)

// promptTemplate は自然言語の質問をフィルタ入力JSONへ変換させるプロンプト
const promptTemplate = `You convert a natural-language question about a car sales dataset
into filter parameters. Respond with a JSON object only, no explanation.

The JSON object has exactly these string fields (use "" when the question
does not constrain the field):
- "start_date": earliest sale date, format YYYY-MM-DD
- "end_date": latest sale date, format YYYY-MM-DD
- "companies": comma-separated car company names (e.g. "Ford,Toyota")
- "min_price": minimum price in dollars, digits only
- "max_price": maximum price in dollars, digits only

Question: %s`

// Translator は自然言語の質問をタスクエンジンのフィルタ入力に変換します
type Translator struct {
	client domain.Client
	log    *slog.Logger
}

// NewTranslator は新しい Translator を作成します
func NewTranslator(client domain.Client, log *slog.Logger) *Translator {
	return &Translator{
		client: client,
		log:    log,
	}
}

// Translate は質問文をフィルタ入力に変換します。
// 変換結果は未検証のフィルタ入力であり、検証はタスクエンジンの投入時に行われ
// ます。
func (t *Translator) Translate(ctx context.Context, query string) (tasksdomain.RawFilterInput, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return tasksdomain.RawFilterInput{}, domain.ErrEmptyQuery
	}

	resp, err := t.client.GenerateCompletion(ctx, domain.CompletionRequest{
		Prompt:         fmt.Sprintf(promptTemplate, query),
		Temperature:    translateTemperature,
		MaxTokens:      translateMaxTokens,
		ResponseFormat: "json",
	})
	if err != nil {
		return tasksdomain.RawFilterInput{}, fmt.Errorf("failed to translate query: %w", err)
	}

	t.log.Debug("translator response received",
		"model", resp.Model,
		"tokensUsed", resp.TokensUsed,
	)

	raw, err := parseResponse(resp.Content)
	if err != nil {
		return tasksdomain.RawFilterInput{}, err
	}

	return raw, nil
}

// parseResponse はLLMの応答からフィルタ入力を取り出します
func parseResponse(response string) (tasksdomain.RawFilterInput, error) {
	// マークダウンのコードブロックが付いていた場合は取り除く
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var raw tasksdomain.RawFilterInput
	if err := json.Unmarshal([]byte(response), &raw); err != nil {
		return tasksdomain.RawFilterInput{}, fmt.Errorf("%w: %v (response: %.200s)", domain.ErrUnparsableResponse, err, response)
	}

	return raw, nil
}
