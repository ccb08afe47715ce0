package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/nao1215/otakuworld/pkg/event"
	"github.com/nao1215/otakuworld/pkg/middleware"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultKeepalive はキープアライブ送信間隔のデフォルト値。
	DefaultKeepalive = 10 * time.Second
	// HeartbeatEvent はキープアライブフレームのイベント名とデータ。
	HeartbeatEvent = "heartbeat"
	// queueSize は接続ごとの送信キューのサイズ。
	queueSize = 16
)

// errSubscriptionClosed はEvent Bus側で購読が閉じられたことを表す。
var errSubscriptionClosed = errors.New("購読が閉じられました")

// Subscriber はGatewayが必要とするEvent Busの操作。
type Subscriber interface {
	Subscribe() *event.Subscription
	Unsubscribe(sub *event.Subscription)
}

// Gateway はSSE接続を管理し、Event Busのイベントをクライアントへ中継する。
type Gateway struct {
	// bus はイベントの購読元。
	bus Subscriber
	// keepalive はキープアライブの送信間隔。
	keepalive time.Duration
	// active は現在接続中のクライアント数。
	active atomic.Int64
	// done はClose時にcloseされ、全接続を終了させる。
	done chan struct{}
	// closeOnce はdoneを一度だけcloseするためのもの。
	closeOnce sync.Once
}

// Option はGatewayの設定を変更する関数。
type Option func(*Gateway)

// WithKeepalive はキープアライブの送信間隔を設定する。
func WithKeepalive(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.keepalive = d
		}
	}
}

// New は新しいGatewayを生成する。
func New(bus Subscriber, opts ...Option) *Gateway {
	g := &Gateway{
		bus:       bus,
		keepalive: DefaultKeepalive,
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// RegisterRoutes はSSEエンドポイントを設定する。
func (g *Gateway) RegisterRoutes(rg gin.IRouter) {
	rg.GET("/sse", g.handleStream())
}

// ActiveConnections は現在接続中のクライアント数を返す。
func (g *Gateway) ActiveConnections() int64 {
	return g.active.Load()
}

// Close は全接続を終了させる。何度呼び出しても安全。
// http.Server.Shutdownはストリーム中のハンドラを待ち続けるため、その前に呼び出す。
func (g *Gateway) Close() {
	g.closeOnce.Do(func() { close(g.done) })
}

// handleStream はSSE接続を処理するハンドラを返す。
func (g *Gateway) handleStream() gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := g.bus.Subscribe()
		defer g.bus.Unsubscribe(sub)

		g.active.Add(1)
		defer g.active.Add(-1)

		h := c.Writer.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
		c.Writer.Flush()

		user := middleware.GetUserID(c)
		log.Printf("[SSE] クライアント接続: remote=%s user=%q", c.ClientIP(), user)

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		queue := make(chan sse.Event, queueSize)
		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() error { return g.relay(egCtx, sub, queue) })
		eg.Go(func() error { return g.heartbeat(egCtx, queue) })

		err := g.drain(egCtx, c.Writer, queue)
		cancel()
		if werr := eg.Wait(); werr != nil {
			err = werr
		}
		// Event Bus側で切断された場合もクライアントがまだいれば中継済みのフレームは届ける
		if errors.Is(err, errSubscriptionClosed) && c.Request.Context().Err() == nil {
			flushQueued(c.Writer, queue)
		}

		log.Printf("[SSE] クライアント切断: remote=%s user=%q dropped=%d reason=%v",
			c.ClientIP(), user, sub.Dropped(), err)
	}
}

// relay は購読したイベントを送信キューへ中継する。
// Event Bus側で購読が閉じられた場合はerrSubscriptionClosedを返す。
func (g *Gateway) relay(ctx context.Context, sub *event.Subscription, queue chan<- sse.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-g.done:
			return errors.New("ゲートウェイが停止しました")
		case ev, ok := <-sub.Events():
			if !ok {
				return errSubscriptionClosed
			}
			data, err := event.Encode(ev)
			if err != nil {
				return fmt.Errorf("イベントのエンコードに失敗: %w", err)
			}
			select {
			case queue <- sse.Event{Event: string(ev.EventType), Data: string(data)}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// heartbeat は一定間隔でキープアライブを送信キューへ積む。
func (g *Gateway) heartbeat(ctx context.Context, queue chan<- sse.Event) error {
	ticker := time.NewTicker(g.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			select {
			case queue <- sse.Event{Event: HeartbeatEvent, Data: HeartbeatEvent}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// drain は送信キューのフレームを順にクライアントへ書き込む。この接続で唯一の書き手。
func (g *Gateway) drain(ctx context.Context, w gin.ResponseWriter, queue <-chan sse.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-queue:
			if err := sse.Encode(w, frame); err != nil {
				return fmt.Errorf("フレームの書き込みに失敗: %w", err)
			}
			w.Flush()
		}
	}
}

// flushQueued はキューに残っているフレームを待たずに書き出す。
// 生産者が全て終了した後に呼び出すこと。
func flushQueued(w gin.ResponseWriter, queue <-chan sse.Event) {
	for {
		select {
		case frame := <-queue:
			if err := sse.Encode(w, frame); err != nil {
				return
			}
		default:
			w.Flush()
			return
		}
	}
}
