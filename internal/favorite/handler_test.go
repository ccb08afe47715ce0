package favorite

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/otakuworld/pkg/event"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestRouter はテスト用のルーターをインメモリSQLiteで構築する。
func setupTestRouter(t *testing.T) (*gin.Engine, *recorder) {
	t.Helper()

	svc, rec := newTestService(t)
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/otaku"))
	return router, rec
}

// doRequest はテスト用のHTTPリクエストを実行し、レスポンスを返すヘルパー関数。
// bodyがstringの場合はそのまま送信し、それ以外はJSONにエンコードする。
func doRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewReader(nil)
	case string:
		reqBody = bytes.NewReader([]byte(b))
	default:
		jsonBytes, _ := json.Marshal(b)
		reqBody = bytes.NewReader(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// parseJSON はレスポンスボディをmapにデコードするヘルパー関数。
func parseJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSONのデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// parseJSONArray はレスポンスボディをスライスにデコードするヘルパー関数。
func parseJSONArray(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var result []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSON配列のデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// TestHandleFavorites はお気に入りエンドポイントの一連の流れを検証する。
func TestHandleFavorites(t *testing.T) {
	t.Parallel()

	router, rec := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/otaku/favorites", map[string]any{
		"url":                  "a",
		"title":                "T",
		"description":          "D",
		"imageUrl":             "https://img/a.png",
		"source":               "src",
		"numChapters":          12,
		"shouldCheckForUpdate": true,
		"type":                 "manga",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("登録のステータスコード: got %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/otaku/favorites/manga", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("一覧のステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	list := parseJSONArray(t, w)
	if len(list) != 1 {
		t.Fatalf("一覧の件数: got %d, want 1", len(list))
	}
	if list[0]["url"] != "a" || list[0]["imageUrl"] != "https://img/a.png" || list[0]["numChapters"] != float64(12) {
		t.Errorf("一覧の要素 = %v", list[0])
	}

	t.Run("プレーンテキストのURLで取得できること", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/otaku/favorites/item", "a")
		if got := parseJSONArray(t, w); len(got) != 1 || got[0]["title"] != "T" {
			t.Errorf("取得結果 = %v", got)
		}
	})

	t.Run("JSON文字列のURLで取得できること", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/otaku/favorites/item", `"a"`)
		if got := parseJSONArray(t, w); len(got) != 1 {
			t.Errorf("取得結果 = %v", got)
		}
	})

	t.Run("クエリのURLで取得できること", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/otaku/favorites/item?url=a", nil)
		if got := parseJSONArray(t, w); len(got) != 1 {
			t.Errorf("取得結果 = %v", got)
		}
	})

	w = doRequest(router, http.MethodDelete, "/otaku/favorites", map[string]string{"url": "a"})
	if w.Code != http.StatusOK {
		t.Fatalf("削除のステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	if got := parseJSON(t, w)["count"]; got != float64(1) {
		t.Errorf("削除件数: got %v, want 1", got)
	}

	w = doRequest(router, http.MethodGet, "/otaku/favorites/item", "a")
	if w.Code != http.StatusOK {
		t.Fatalf("削除後取得のステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	if got := parseJSONArray(t, w); len(got) != 0 {
		t.Errorf("削除後に取得できた: %v", got)
	}

	w = doRequest(router, http.MethodDelete, "/otaku/favorites", map[string]string{"url": "a"})
	if got := parseJSON(t, w)["count"]; got != float64(0) {
		t.Errorf("2回目の削除件数: got %v, want 0", got)
	}

	events := rec.Events()
	if len(events) != 2 {
		t.Fatalf("イベント数: got %d, want 2", len(events))
	}
	if events[0] != (event.Event{EventType: event.TypeNewFavorite, ID: "a"}) {
		t.Errorf("登録イベント = %+v", events[0])
	}
	if events[1] != (event.Event{EventType: event.TypeDeleteFavorite, ID: "a"}) {
		t.Errorf("削除イベント = %+v", events[1])
	}
}

// TestHandleFavoritesBadRequest は不正なリクエストが400になり通知されないことを検証する。
func TestHandleFavoritesBadRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{name: "urlのないお気に入り登録", method: http.MethodPost, path: "/otaku/favorites", body: map[string]string{"title": "T"}},
		{name: "JSONでないお気に入り登録", method: http.MethodPost, path: "/otaku/favorites", body: "not json"},
		{name: "ボディのないお気に入り削除", method: http.MethodDelete, path: "/otaku/favorites", body: nil},
		{name: "キーのないお気に入り取得", method: http.MethodGet, path: "/otaku/favorites/item", body: nil},
		{name: "urlのない既読チャプター登録", method: http.MethodPost, path: "/otaku/chapters", body: map[string]string{"name": "n"}},
		{name: "ボディのない既読チャプター一覧", method: http.MethodGet, path: "/otaku/chapters", body: nil},
		{name: "不正なJSON文字列の既読チャプター取得", method: http.MethodGet, path: "/otaku/chapters/item", body: `"broken`},
		{name: "上限を超えるキーのお気に入り取得", method: http.MethodGet, path: "/otaku/favorites/item", body: strings.Repeat("a", maxKeyBodySize+1)},
		{name: "上限を超えるキーの既読チャプター取得", method: http.MethodGet, path: "/otaku/chapters/item", body: strings.Repeat("a", maxKeyBodySize+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router, rec := setupTestRouter(t)

			w := doRequest(router, tt.method, tt.path, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
			}
			if _, ok := parseJSON(t, w)["error"]; !ok {
				t.Error("errorフィールドがない")
			}
			if len(rec.Events()) != 0 {
				t.Errorf("イベントが発行された: %+v", rec.Events())
			}
		})
	}
}

// TestHandleChapters は既読チャプターエンドポイントを検証する。
func TestHandleChapters(t *testing.T) {
	t.Parallel()

	router, rec := setupTestRouter(t)

	for _, c := range []map[string]string{
		{"url": "c1", "name": "第1話", "favoriteUrl": "a"},
		{"url": "c2", "name": "第2話", "favoriteUrl": "a"},
		{"url": "c3", "name": "第1話", "favoriteUrl": "b"},
	} {
		if w := doRequest(router, http.MethodPost, "/otaku/chapters", c); w.Code != http.StatusCreated {
			t.Fatalf("登録のステータスコード: got %d, want %d", w.Code, http.StatusCreated)
		}
	}

	t.Run("ボディのurlでお気に入りに紐づく一覧が取れること", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/otaku/chapters", map[string]string{"url": "a"})
		got := parseJSONArray(t, w)
		if len(got) != 2 {
			t.Fatalf("件数: got %d, want 2", len(got))
		}
		if got[0]["favoriteUrl"] != "a" {
			t.Errorf("favoriteUrl = %v", got[0]["favoriteUrl"])
		}
	})

	t.Run("クエリのurlでも一覧が取れること", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/otaku/chapters?url=b", nil)
		if got := parseJSONArray(t, w); len(got) != 1 {
			t.Errorf("件数: got %d, want 1", len(got))
		}
	})

	t.Run("URLで1件取得できること", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/otaku/chapters/item", `{"url":"c2"}`)
		got := parseJSONArray(t, w)
		if len(got) != 1 || got[0]["name"] != "第2話" {
			t.Errorf("取得結果 = %v", got)
		}
	})

	w := doRequest(router, http.MethodDelete, "/otaku/chapters", map[string]string{"url": "c1"})
	if got := parseJSON(t, w)["count"]; got != float64(1) {
		t.Errorf("削除件数: got %v, want 1", got)
	}

	var kinds []string
	for _, ev := range rec.Events() {
		kinds = append(kinds, string(ev.EventType))
	}
	want := "NEW_CHAPTER,NEW_CHAPTER,NEW_CHAPTER,DELETE_CHAPTER"
	if got := strings.Join(kinds, ","); got != want {
		t.Errorf("イベント種別: got %s, want %s", got, want)
	}
}
