package domain

import "errors"

var (
	// ErrInvalidFilter はフィルタ項目単体の検証に失敗した場合のエラー
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidFilterRange は項目間の範囲検証に失敗した場合のエラー
	ErrInvalidFilterRange = errors.New("invalid filter range")

	// ErrTaskNotFound は存在しないタスクIDを参照した場合のエラー
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTransition は許可されていない状態遷移を試みた場合のエラー。
	// クライアント起因ではなくスケジューリング側の欠陥を示すため、呼び出し側は
	// 致命的な内部不整合として扱う。
	ErrInvalidTransition = errors.New("invalid task state transition")

	// ErrDatasetRead はデータセットの読み取りに失敗した場合のエラー
	ErrDatasetRead = errors.New("dataset read failed")
)
