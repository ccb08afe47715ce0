package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/nao1215/otakuworld/pkg/event"
	sse "github.com/tmaxmax/go-sse"
)

// heartbeatEvent はキープアライブフレームのイベント名。
const heartbeatEvent = "heartbeat"

// Frame はSSEストリームから読み取った1フレーム。
type Frame struct {
	// Event はevent行の値。
	Event string
	// Data はdata行の値。複数行の場合は改行で連結する。
	Data string
}

// IsHeartbeat はキープアライブフレームかどうかを返す。
func (f Frame) IsHeartbeat() bool {
	return f.Event == heartbeatEvent
}

// Decode はフレームのデータを変更イベントとして解釈する。
func (f Frame) Decode() (event.Event, error) {
	return event.Decode([]byte(f.Data))
}

// Subscribe は /sse に接続し、受信したフレームを流すチャネルを返す。
// チャネルはストリームが終わるかctxがキャンセルされるとcloseされる。
func (c *Client) Subscribe(ctx context.Context) (<-chan Frame, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/sse", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SSE接続に失敗: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	frames := make(chan Frame)
	go func() {
		defer close(frames)
		defer resp.Body.Close()
		readFrames(ctx, resp.Body, frames)
	}()
	return frames, nil
}

// readFrames はSSEストリームをフレーム単位に分割してoutへ送る。
// 空行で終端されていない末尾のフレームは捨てる。
func readFrames(ctx context.Context, r io.Reader, out chan<- Frame) {
	for ev, err := range sse.Read(r, nil) {
		if err != nil {
			return
		}
		select {
		case out <- Frame{Event: ev.Type, Data: ev.Data}:
		case <-ctx.Done():
			return
		}
	}
}
