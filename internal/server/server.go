// Package server はotakuworldの各コンポーネントを組み立ててHTTPサーバーとして起動する。
//
// Record Store、Event Bus、Favorites Service、List Service、Live Update Gatewayを生成し、
// 同じEvent Busを発行側とGatewayの両方に明示的に渡す。
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/otakuworld/internal/config"
	"github.com/nao1215/otakuworld/internal/favorite"
	"github.com/nao1215/otakuworld/internal/gateway"
	"github.com/nao1215/otakuworld/internal/list"
	"github.com/nao1215/otakuworld/internal/store"
	"github.com/nao1215/otakuworld/pkg/event"
	"github.com/nao1215/otakuworld/pkg/middleware"
	"golang.org/x/sync/errgroup"
)

// Server はotakuworldのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はサーバー設定。
	cfg config.Config
	// store はRecord Store。
	store *store.Store
	// bus は変更イベントを配信するEvent Bus。
	bus *event.Bus
	// gateway はSSEのLive Update Gateway。
	gateway *gateway.Gateway
}

// NewServer は設定から新しいサーバーを生成する。
// SQLiteデータベースを開き、マイグレーションを適用する。
func NewServer(cfg config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("Record Storeの初期化に失敗: %w", err)
	}

	bus := event.NewBus(
		event.WithBufferSize(cfg.SubscriberBuffer),
		event.WithPolicy(cfg.Policy()),
	)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	s := &Server{
		router:  router,
		cfg:     cfg,
		store:   st,
		bus:     bus,
		gateway: gateway.New(bus, gateway.WithKeepalive(cfg.SSEKeepalive)),
	}
	s.setupRoutes()

	return s, nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group(s.cfg.BasePath)
	api.Use(middleware.Gate(s.cfg.JWTSecret))
	{
		favorite.NewHandler(favorite.NewService(s.store, s.bus)).RegisterRoutes(api)
		list.NewHandler(list.NewService(s.store, s.bus)).RegisterRoutes(api)
		s.gateway.RegisterRoutes(api)
	}

	// ヘルスチェック（認証不要）
	s.router.GET("/health", s.handleHealth())
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth はヘルスチェックを処理するハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if err := s.store.Ping(c.Request.Context()); err != nil {
			log.Printf("ヘルスチェックでデータベースに到達できません: %v", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":      status,
			"service":     "otakuworld",
			"connections": s.gateway.ActiveConnections(),
			"subscribers": s.bus.Len(),
		})
	}
}

// Run は設定したポートでHTTPサーバーを起動し、ctxがキャンセルされるまで待つ。
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%s", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("ポート %s のリッスンに失敗: %w", s.cfg.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve はlnでHTTPサーバーを起動する。ctxがキャンセルされるとグレースフルシャットダウンする。
// SSE接続は先に閉じてから、処理中のリクエストの完了を待つ。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Printf("otakuworldを起動します: %s (base=%q)", ln.Addr(), s.cfg.BasePath)
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTPサーバーが異常終了しました: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		log.Printf("シャットダウンを開始します")

		s.gateway.Close()
		s.bus.Close()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("グレースフルシャットダウンに失敗: %w", err)
		}
		return nil
	})

	err := eg.Wait()
	if cerr := s.store.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("データベースのクローズに失敗: %w", cerr)
	}
	return err
}

// Close はServeを使わずにサーバーを破棄するときにリソースを解放する。
func (s *Server) Close() error {
	s.gateway.Close()
	s.bus.Close()
	return s.store.Close()
}
