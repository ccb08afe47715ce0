package list

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/otakuworld/internal/store"
	"github.com/nao1215/otakuworld/pkg/event"
)

// ErrInvalidArgument はIDが空などの不正な入力を表す。
// このエラーを返したときは保存もイベント発行も行っていない。
var ErrInvalidArgument = errors.New("不正な引数")

// Store はList Serviceが必要とするRecord Storeの操作。
type Store interface {
	UpsertList(ctx context.Context, l store.List) (string, error)
	UpdateListBiometric(ctx context.Context, listID string, useBiometric bool) (int64, error)
	Lists(ctx context.Context) ([]store.List, error)
	DeleteList(ctx context.Context, listID string) (int64, error)
	UpsertListEntry(ctx context.Context, e store.ListEntry) (string, error)
	ListEntries(ctx context.Context, listID string) ([]store.ListEntry, error)
	ListEntryByID(ctx context.Context, entryID string) (*store.ListEntry, error)
	DeleteListEntry(ctx context.Context, entryID string) (string, int64, error)
	DeleteListWithEntries(ctx context.Context, listID string) (int64, error)
}

// Service はユーザーのリストとそのエントリを管理する。
type Service struct {
	// store は永続化先。
	store Store
	// events は変更イベントの発行先。
	events event.Publisher
	// now は現在時刻を返す。テストで差し替える。
	now func() time.Time
	// newID はエントリIDを採番する。
	newID func() string
}

// NewService は新しいServiceを生成する。
func NewService(st Store, events event.Publisher) *Service {
	return &Service{
		store:  st,
		events: events,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// CreateOrUpdateList はリストを保存してADD_LISTを発行する。
// CreatedAtが0の場合は現在時刻を入れる。
func (s *Service) CreateOrUpdateList(ctx context.Context, l store.List) (string, error) {
	return s.saveList(ctx, l, event.TypeAddList)
}

// UpdateList は既存リストを上書きしてADD_LIST_ITEMを発行する。
// リストの内容が変わったことを表す種別として、エントリ追加と同じ種別を使う。
func (s *Service) UpdateList(ctx context.Context, l store.List) (string, error) {
	return s.saveList(ctx, l, event.TypeAddListItem)
}

// saveList はリストを保存し、成功したら指定した種別のイベントを発行する。
func (s *Service) saveList(ctx context.Context, l store.List, kind event.Type) (string, error) {
	if l.ID == "" {
		return "", fmt.Errorf("%w: uuidが空です", ErrInvalidArgument)
	}
	if l.CreatedAt == 0 {
		l.CreatedAt = s.now().UnixMilli()
	}

	key, err := s.store.UpsertList(ctx, l)
	if err != nil {
		return "", err
	}
	s.events.Publish(event.Event{EventType: kind, ID: key})
	return key, nil
}

// AddListEntry はエントリを保存してADD_LIST_ITEMを発行する。
// EntryIDが空の場合は新しいUUIDを採番し、保存したエントリIDを返す。
func (s *Service) AddListEntry(ctx context.Context, e store.ListEntry) (string, error) {
	if e.ListID == "" {
		return "", fmt.Errorf("%w: uuidが空です", ErrInvalidArgument)
	}
	if e.EntryID == "" {
		e.EntryID = s.newID()
	}

	key, err := s.store.UpsertListEntry(ctx, e)
	if err != nil {
		return "", err
	}
	s.events.Publish(event.Event{EventType: event.TypeAddListItem, ID: e.ListID})
	return key, nil
}

// Entries はリストIDに一致するエントリを返す。
func (s *Service) Entries(ctx context.Context, listID string) ([]store.ListEntry, error) {
	if listID == "" {
		return nil, fmt.Errorf("%w: idが空です", ErrInvalidArgument)
	}
	return s.store.ListEntries(ctx, listID)
}

// EntryByID はエントリIDでエントリを取得する。存在しない場合はnilを返す。
func (s *Service) EntryByID(ctx context.Context, entryID string) (*store.ListEntry, error) {
	if entryID == "" {
		return nil, fmt.Errorf("%w: idが空です", ErrInvalidArgument)
	}
	return s.store.ListEntryByID(ctx, entryID)
}

// AllLists は全リストをエントリ付きで返す。
// リストごとにエントリを取得するため、クエリ数はリスト数+1になる。
func (s *Service) AllLists(ctx context.Context) ([]store.CustomList, error) {
	lists, err := s.store.Lists(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]store.CustomList, 0, len(lists))
	for _, l := range lists {
		entries, err := s.store.ListEntries(ctx, l.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, store.CustomList{Item: l, Entries: entries})
	}
	return result, nil
}

// UpdateBiometric はリストの生体認証フラグを更新する。
// 更新件数が0件でも保存に成功すればADD_LIST_ITEMを発行する。
func (s *Service) UpdateBiometric(ctx context.Context, listID string, useBiometric bool) (int64, error) {
	if listID == "" {
		return 0, fmt.Errorf("%w: idが空です", ErrInvalidArgument)
	}
	n, err := s.store.UpdateListBiometric(ctx, listID, useBiometric)
	if err != nil {
		return 0, err
	}
	s.events.Publish(event.Event{EventType: event.TypeAddListItem, ID: listID})
	return n, nil
}

// DeleteList はリスト本体だけを削除し、削除件数を返す。エントリは残す。
// 削除件数に関わらずREMOVE_LISTを発行する。
func (s *Service) DeleteList(ctx context.Context, listID string) (int64, error) {
	if listID == "" {
		return 0, fmt.Errorf("%w: idが空です", ErrInvalidArgument)
	}
	n, err := s.store.DeleteList(ctx, listID)
	if err != nil {
		return 0, err
	}
	s.events.Publish(event.Event{EventType: event.TypeRemoveList, ID: listID})
	return n, nil
}

// DeleteFullList はリスト本体とそのエントリをまとめて削除し、合計の削除件数を返す。
// 削除件数に関わらずREMOVE_LISTを発行する。
func (s *Service) DeleteFullList(ctx context.Context, listID string) (int64, error) {
	if listID == "" {
		return 0, fmt.Errorf("%w: idが空です", ErrInvalidArgument)
	}
	n, err := s.store.DeleteListWithEntries(ctx, listID)
	if err != nil {
		return 0, err
	}
	s.events.Publish(event.Event{EventType: event.TypeRemoveList, ID: listID})
	return n, nil
}

// RemoveListEntry はエントリを1件削除し、削除件数を返す。
// 削除できたときだけ、所属していたリストのIDでREMOVE_LIST_ITEMを発行する。
func (s *Service) RemoveListEntry(ctx context.Context, entryID string) (int64, error) {
	if entryID == "" {
		return 0, fmt.Errorf("%w: idが空です", ErrInvalidArgument)
	}
	listID, n, err := s.store.DeleteListEntry(ctx, entryID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.events.Publish(event.Event{EventType: event.TypeRemoveListItem, ID: listID})
	}
	return n, nil
}
