package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType は未定義のイベント種別が指定されたことを表す。
var ErrUnknownType = errors.New("未定義のイベント種別です")

// New は新しいイベントを生成する。
// 未定義の種別やキーが空の場合はエラーを返す。
func New(eventType Type, id string) (Event, error) {
	if !eventType.Valid() {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownType, eventType)
	}
	if id == "" {
		return Event{}, fmt.Errorf("イベント %s のキーが空です", eventType)
	}
	return Event{EventType: eventType, ID: id}, nil
}

// Encode はイベントをSSEのdataに載せるJSONにシリアライズする。
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("イベントのシリアライズに失敗: %w", err)
	}
	return data, nil
}

// Decode はJSONからイベントをデシリアライズする。
// 未定義の種別を含む場合はErrUnknownTypeを返す。
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("イベントのデシリアライズに失敗: %w", err)
	}
	if !ev.EventType.Valid() {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownType, ev.EventType)
	}
	return ev, nil
}
