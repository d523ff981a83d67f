package domain

import "context"

// CompletionRequest はテキスト生成のリクエスト
type CompletionRequest struct {
	// Prompt は生成の入力プロンプト
	Prompt string

	// Temperature は生成のランダム性(0.0〜1.0)
	Temperature float64

	// MaxTokens は生成する最大トークン数(0の場合はモデルのデフォルト)
	MaxTokens int

	// ResponseFormat は "json" を指定するとJSON形式の応答を強制する
	ResponseFormat string
}

// CompletionResponse はテキスト生成の結果
type CompletionResponse struct {
	// Content は生成されたテキスト
	Content string

	// TokensUsed は消費したトークン数
	TokensUsed int

	// Model は実際に使用されたモデル名
	Model string
}

// Client は自然言語からフィルタ条件への変換に使うLLMクライアントの
// インターフェース
type Client interface {
	// GenerateCompletion はプロンプトからテキストを生成する
	GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// GetModelName は使用するモデル名を返す
	GetModelName() string
}
