package event

// Type は変更イベントの種類を表す。
// SSEのevent名としてもそのまま使用される。
type Type string

const (
	// TypeNewFavorite はお気に入りが追加・上書きされたことを表す。
	TypeNewFavorite Type = "NEW_FAVORITE"
	// TypeDeleteFavorite はお気に入りが削除されたことを表す。
	TypeDeleteFavorite Type = "DELETE_FAVORITE"
	// TypeNewChapter はチャプターの既読記録が追加されたことを表す。
	TypeNewChapter Type = "NEW_CHAPTER"
	// TypeDeleteChapter はチャプターの既読記録が削除されたことを表す。
	TypeDeleteChapter Type = "DELETE_CHAPTER"
	// TypeAddList はリストが作成されたことを表す。
	TypeAddList Type = "ADD_LIST"
	// TypeRemoveList はリストが削除されたことを表す。
	TypeRemoveList Type = "REMOVE_LIST"
	// TypeAddListItem はリストの中身が変化したことを表す。
	// エントリ追加だけでなく、リスト情報の更新や生体認証フラグの変更でも使われる。
	TypeAddListItem Type = "ADD_LIST_ITEM"
	// TypeRemoveListItem はリストからエントリが削除されたことを表す。
	TypeRemoveListItem Type = "REMOVE_LIST_ITEM"
)

// Types は定義済みのイベント種別の一覧。
var Types = []Type{
	TypeNewFavorite,
	TypeDeleteFavorite,
	TypeNewChapter,
	TypeDeleteChapter,
	TypeAddList,
	TypeRemoveList,
	TypeAddListItem,
	TypeRemoveListItem,
}

// Valid は定義済みのイベント種別かどうかを返す。
func (t Type) Valid() bool {
	for _, v := range Types {
		if t == v {
			return true
		}
	}
	return false
}

// Event は永続化が完了した変更操作を購読者へ知らせるイベント。
// Busの上にだけ存在し、永続化されることはない。
type Event struct {
	// EventType はイベントの種類。
	EventType Type `json:"eventType"`
	// ID は対象エンティティのキー（urlまたはリストのuuid）。
	ID string `json:"id"`
}

// Publisher はイベントを発行する側のインターフェース。
// サービス層はBusそのものではなくこのインターフェースに依存する。
type Publisher interface {
	Publish(ev Event)
}
