package event

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// Policy は配信が詰まった購読者への扱いを表す。
type Policy string

const (
	// PolicyDrop はバッファが満杯の購読者に対してそのイベントだけを捨てる。
	PolicyDrop Policy = "drop"
	// PolicyDisconnect はバッファが満杯の購読者を切断する。
	PolicyDisconnect Policy = "disconnect"
)

// DefaultBufferSize は購読者ごとの配信バッファのデフォルトサイズ。
const DefaultBufferSize = 16

// ParsePolicy は文字列からPolicyを取得する。
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyDrop, PolicyDisconnect:
		return p, nil
	default:
		return "", fmt.Errorf("不明な購読者ポリシー: %q", s)
	}
}

// Subscription はBusへの1つの購読を表す。
type Subscription struct {
	// ch はイベントの配信先。Busが購読を解除した時点でcloseされる。
	ch chan Event
	// dropped はPolicyDropによって捨てられたイベント数。
	dropped atomic.Int64
}

// Events は配信されるイベントのチャネルを返す。
// 購読が解除されるとチャネルはcloseされる。
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped はこの購読者に届かなかったイベント数を返す。
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Bus はプロセス内で変更イベントを全購読者へ配信するブロードキャストチャネル。
// グローバル変数ではなく、生成したBusを必要なコンポーネントへ明示的に渡して使う。
type Bus struct {
	// mu は購読者集合とclosedを保護する。Publishの直列化も兼ねる。
	mu sync.Mutex
	// subs は現在接続中の購読者の集合。
	subs map[*Subscription]struct{}
	// buffer は購読者ごとのチャネルバッファサイズ。
	buffer int
	// policy は詰まった購読者への扱い。
	policy Policy
	// closed はClose済みかどうか。
	closed bool
}

// Option はBusの設定を変更する関数。
type Option func(*Bus)

// WithBufferSize は購読者ごとの配信バッファサイズを設定する。
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithPolicy は詰まった購読者への扱いを設定する。
func WithPolicy(p Policy) Option {
	return func(b *Bus) { b.policy = p }
}

// NewBus は新しいBusを生成する。
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[*Subscription]struct{}),
		buffer: DefaultBufferSize,
		policy: PolicyDisconnect,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Subscribe は新しい購読を登録する。
// 登録前に発行されたイベントは配信されない。
// Close済みのBusからは、すでにcloseされたチャネルを持つ購読が返る。
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan Event, b.buffer)}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe は購読を解除してチャネルをcloseする。
// 何度呼び出しても安全。
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.detach(sub)
}

// detach は購読者を集合から取り除く。呼び出し側でmuを保持すること。
func (b *Bus) detach(sub *Subscription) {
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Publish は現在接続中の全購読者へイベントを配信する。
// 送信はノンブロッキングで行い、バッファが満杯の購読者はポリシーに従って処理する。
// 購読者が遅くてもPublishが待たされることはない。
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			switch b.policy {
			case PolicyDrop:
				sub.dropped.Add(1)
			default:
				log.Printf("[Bus] 配信が詰まった購読者を切断します: event=%s id=%s", ev.EventType, ev.ID)
				b.detach(sub)
			}
		}
	}
}

// Len は現在の購読者数を返す。
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close は全購読者を切断し、以降の購読を受け付けなくする。
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for sub := range b.subs {
		b.detach(sub)
	}
}
