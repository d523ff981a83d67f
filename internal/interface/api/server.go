package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jinford/autoview/internal/module/tasks/application"
)

const (
	// DefaultAddr はHTTPサーバのデフォルト待ち受けアドレス
	DefaultAddr = ":5001"

	// shutdownTimeout はグレースフルシャットダウンの猶予時間
	shutdownTimeout = 10 * time.Second
)

// Config はHTTPサーバの設定です
type Config struct {
	// Addr は待ち受けアドレス。空の場合は DefaultAddr。
	Addr string

	// CORSOrigins は許可するオリジンの一覧。空の場合はCORSヘッダを付けない。
	CORSOrigins []string
}

// Server はタスクエンジンへの薄いHTTPアダプターです。
// ルーティングとシリアライズのみを担当し、ドメインのロジックは持ちません。
type Server struct {
	tasks *application.TaskService
	log   *slog.Logger
	http  *http.Server
}

// NewServer は新しいHTTPサーバを作成します
func NewServer(tasks *application.TaskService, log *slog.Logger, cfg Config) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{
		tasks: tasks,
		log:   log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/tasks", s.handleCreateTask)
	mux.HandleFunc("GET /api/v1/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	var handler http.Handler = mux
	handler = withCORS(cfg.CORSOrigins, handler)
	handler = withRequestLogging(log, handler)

	s.http = &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	return s
}

// Handler はテスト用にルーティング済みのハンドラを返します
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run はHTTPサーバを起動し、ctx のキャンセルでグレースフルに停止します
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.log.Info("shutting down HTTP server")
	return s.http.Shutdown(shutdownCtx)
}
