package application_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/autoview/internal/module/translate/application"
	"github.com/jinford/autoview/internal/module/translate/domain"
)

// mockClient はテスト用のモックLLMクライアント
type mockClient struct {
	GenerateCompletionFunc func(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error)
}

func (m *mockClient) GenerateCompletion(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	if m.GenerateCompletionFunc != nil {
		return m.GenerateCompletionFunc(ctx, req)
	}
	return domain.CompletionResponse{}, nil
}

func (m *mockClient) GetModelName() string {
	return "mock-model"
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestTranslator_Translate(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{
		GenerateCompletionFunc: func(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
			assert.Contains(t, req.Prompt, "ford cars until 1975 under 5000 dollars")
			assert.Equal(t, "json", req.ResponseFormat)
			return domain.CompletionResponse{
				Content: `{"start_date": "", "end_date": "1975-12-31", "companies": "Ford", "min_price": "", "max_price": "5000"}`,
			}, nil
		},
	}

	translator := application.NewTranslator(client, testLogger())
	raw, err := translator.Translate(ctx, "ford cars until 1975 under 5000 dollars")

	require.NoError(t, err)
	assert.Empty(t, raw.StartDate)
	assert.Equal(t, "1975-12-31", raw.EndDate)
	assert.Equal(t, "Ford", raw.Companies)
	assert.Equal(t, "5000", raw.MaxPrice)
}

func TestTranslator_Translate_StripsMarkdownFences(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{
		GenerateCompletionFunc: func(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
			return domain.CompletionResponse{
				Content: "```json\n{\"companies\": \"Toyota\"}\n```",
			}, nil
		},
	}

	translator := application.NewTranslator(client, testLogger())
	raw, err := translator.Translate(ctx, "show me toyotas")

	require.NoError(t, err)
	assert.Equal(t, "Toyota", raw.Companies)
}

func TestTranslator_Translate_EmptyQuery(t *testing.T) {
	translator := application.NewTranslator(&mockClient{}, testLogger())

	_, err := translator.Translate(context.Background(), "   ")

	require.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestTranslator_Translate_UnparsableResponse(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{
		GenerateCompletionFunc: func(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
			return domain.CompletionResponse{Content: "sorry, I cannot help with that"}, nil
		},
	}

	translator := application.NewTranslator(client, testLogger())
	_, err := translator.Translate(ctx, "show me toyotas")

	require.ErrorIs(t, err, domain.ErrUnparsableResponse)
}
