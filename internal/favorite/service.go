package favorite

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/otakuworld/internal/store"
	"github.com/nao1215/otakuworld/pkg/event"
)

// ErrInvalidArgument はキーが空などの不正な入力を表す。
// このエラーを返したときは保存もイベント発行も行っていない。
var ErrInvalidArgument = errors.New("不正な引数")

// Store はFavorites Serviceが必要とするRecord Storeの操作。
type Store interface {
	UpsertFavorite(ctx context.Context, f store.Favorite) (string, error)
	FavoritesByType(ctx context.Context, mediaType string) ([]store.Favorite, error)
	FavoriteByURL(ctx context.Context, url string) (*store.Favorite, error)
	DeleteFavorite(ctx context.Context, url string) (int64, error)
	UpsertChapter(ctx context.Context, c store.Chapter) (string, error)
	ChaptersByFavorite(ctx context.Context, favoriteURL string) ([]store.Chapter, error)
	ChapterByURL(ctx context.Context, url string) (*store.Chapter, error)
	DeleteChapter(ctx context.Context, url string) (int64, error)
}

// Service はお気に入りと既読チャプターを管理する。
// 書き込みが成功した後にだけ変更イベントを発行する。
type Service struct {
	// store は永続化先。
	store Store
	// events は変更イベントの発行先。
	events event.Publisher
}

// NewService は新しいServiceを生成する。
func NewService(st Store, events event.Publisher) *Service {
	return &Service{store: st, events: events}
}

// AddFavorite はお気に入りを保存してNEW_FAVORITEを発行する。
// 同じURLで保存し直した場合も上書きしたうえでイベントを発行する。
func (s *Service) AddFavorite(ctx context.Context, f store.Favorite) (string, error) {
	if f.URL == "" {
		return "", fmt.Errorf("%w: urlが空です", ErrInvalidArgument)
	}
	key, err := s.store.UpsertFavorite(ctx, f)
	if err != nil {
		return "", err
	}
	s.events.Publish(event.Event{EventType: event.TypeNewFavorite, ID: key})
	return key, nil
}

// FavoritesByType は指定したメディア種別のお気に入りを返す。
func (s *Service) FavoritesByType(ctx context.Context, mediaType string) ([]store.Favorite, error) {
	if mediaType == "" {
		return nil, fmt.Errorf("%w: typeが空です", ErrInvalidArgument)
	}
	return s.store.FavoritesByType(ctx, mediaType)
}

// FavoriteByURL はURLでお気に入りを取得する。見つからない場合はnilを返し、エラーにはしない。
func (s *Service) FavoriteByURL(ctx context.Context, url string) (*store.Favorite, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: urlが空です", ErrInvalidArgument)
	}
	return s.store.FavoriteByURL(ctx, url)
}

// DeleteFavorite はお気に入りを削除して削除件数を返す。
// 実際に削除できたときだけDELETE_FAVORITEを発行する。
func (s *Service) DeleteFavorite(ctx context.Context, url string) (int64, error) {
	if url == "" {
		return 0, fmt.Errorf("%w: urlが空です", ErrInvalidArgument)
	}
	n, err := s.store.DeleteFavorite(ctx, url)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.events.Publish(event.Event{EventType: event.TypeDeleteFavorite, ID: url})
	}
	return n, nil
}

// AddChapterWatched は既読チャプターを保存してNEW_CHAPTERを発行する。
func (s *Service) AddChapterWatched(ctx context.Context, c store.Chapter) (string, error) {
	if c.URL == "" {
		return "", fmt.Errorf("%w: urlが空です", ErrInvalidArgument)
	}
	key, err := s.store.UpsertChapter(ctx, c)
	if err != nil {
		return "", err
	}
	s.events.Publish(event.Event{EventType: event.TypeNewChapter, ID: key})
	return key, nil
}

// ChapterProgress はお気に入りに紐づく既読チャプターを返す。
func (s *Service) ChapterProgress(ctx context.Context, favoriteURL string) ([]store.Chapter, error) {
	if favoriteURL == "" {
		return nil, fmt.Errorf("%w: urlが空です", ErrInvalidArgument)
	}
	return s.store.ChaptersByFavorite(ctx, favoriteURL)
}

// ChapterByURL はURLで既読チャプターを取得する。見つからない場合はnilを返す。
func (s *Service) ChapterByURL(ctx context.Context, url string) (*store.Chapter, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: urlが空です", ErrInvalidArgument)
	}
	return s.store.ChapterByURL(ctx, url)
}

// RemoveChapterWatched は既読チャプターを削除して削除件数を返す。
// 実際に削除できたときだけDELETE_CHAPTERを発行する。
func (s *Service) RemoveChapterWatched(ctx context.Context, url string) (int64, error) {
	if url == "" {
		return 0, fmt.Errorf("%w: urlが空です", ErrInvalidArgument)
	}
	n, err := s.store.DeleteChapter(ctx, url)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.events.Publish(event.Event{EventType: event.TypeDeleteChapter, ID: url})
	}
	return n, nil
}
