package domain

import "errors"

var (
	// ErrRateLimitExceeded はレート制限を超えた場合のエラー
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrMaxRetriesExceeded は最大リトライ回数を超えた場合のエラー
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrEmptyQuery は変換対象の質問文が空の場合のエラー
	ErrEmptyQuery = errors.New("query is empty")

	// ErrUnparsableResponse はLLMの応答をフィルタ条件として解釈できなかった
	// 場合のエラー
	ErrUnparsableResponse = errors.New("unparsable translator response")
)
