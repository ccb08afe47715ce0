package list

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/otakuworld/internal/store"
)

// Handler はリストのHTTPハンドラ。
type Handler struct {
	// svc はList Service。
	svc *Service
}

// NewHandler は新しいHandlerを生成する。
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes はリストのルーティングを設定する。
func (h *Handler) RegisterRoutes(rg gin.IRouter) {
	lists := rg.Group("/lists")
	{
		// リスト作成
		lists.POST("", h.handleCreateList())
		// エントリ追加
		lists.POST("/item", h.handleAddEntry())
		// リスト更新
		lists.PATCH("", h.handleUpdateList())
		// 生体認証フラグ更新
		lists.PATCH("/biometric/:id", h.handleUpdateBiometric())
		// 全リストをエントリ付きで取得
		lists.GET("", h.handleAllLists())
		// リストのエントリ一覧
		lists.GET("/:id", h.handleEntries())
		// エントリを1件取得
		lists.GET("/item/:id", h.handleEntryByID())
		// リスト本体だけを削除
		lists.DELETE("/:id", h.handleDeleteList())
		// リストとエントリをまとめて削除
		lists.DELETE("/all/:id", h.handleDeleteFullList())
		// エントリを1件削除
		lists.DELETE("/item/:id", h.handleRemoveEntry())
	}

	// リストのuuidで引くエントリ一覧
	rg.GET("/list/:id", h.handleEntries())
}

// listItemJSON はリスト本体のJSON構造。
type listItemJSON struct {
	// UUID はリストID。
	UUID string `json:"uuid" binding:"required"`
	// Name はリスト名。
	Name string `json:"name"`
	// Time は作成日時（エポックミリ秒）。
	Time int64 `json:"time"`
	// UseBiometric は生体認証を要求するかどうか。
	UseBiometric bool `json:"useBiometric"`
}

// listEntryJSON はリストエントリのJSON構造。
type listEntryJSON struct {
	// UniqueID はエントリID。空の場合はサーバーで採番する。
	UniqueID string `json:"uniqueId"`
	// UUID は所属するリストID。
	UUID string `json:"uuid" binding:"required"`
	// Title はタイトル。
	Title string `json:"title"`
	// Description は説明文。
	Description string `json:"description"`
	// URL は作品のURL。
	URL string `json:"url"`
	// ImageURL はサムネイル画像のURL。
	ImageURL string `json:"imageUrl"`
	// Source は取得元ソースの識別子。
	Source string `json:"source"`
}

// customListJSON はエントリ付きリストのJSON構造。
type customListJSON struct {
	// Item はリスト本体。
	Item listItemJSON `json:"item"`
	// List はリストに含まれるエントリ。
	List []listEntryJSON `json:"list"`
}

// biometricRequest は生体認証フラグ更新リクエストのJSON構造。
type biometricRequest struct {
	// UseBiometric は新しいフラグ値。falseを受け付けるためポインタにする。
	UseBiometric *bool `json:"useBiometric" binding:"required"`
}

// deleteCountResponse は削除件数のJSONレスポンス構造。
type deleteCountResponse struct {
	// Count は削除した件数。
	Count int64 `json:"count"`
}

// toListItemJSON はstore.ListをJSON構造に変換する。
func toListItemJSON(l store.List) listItemJSON {
	return listItemJSON{UUID: l.ID, Name: l.Name, Time: l.CreatedAt, UseBiometric: l.UseBiometric}
}

// toListEntryJSON はstore.ListEntryをJSON構造に変換する。
func toListEntryJSON(e store.ListEntry) listEntryJSON {
	return listEntryJSON{
		UniqueID:    e.EntryID,
		UUID:        e.ListID,
		Title:       e.Title,
		Description: e.Description,
		URL:         e.URL,
		ImageURL:    e.ImageURL,
		Source:      e.Source,
	}
}

// toEntriesJSON はエントリのスライスをJSON構造のスライスに変換する。
func toEntriesJSON(entries []store.ListEntry) []listEntryJSON {
	resp := make([]listEntryJSON, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toListEntryJSON(e))
	}
	return resp
}

// toStore はJSON構造をstore.Listに変換する。
func (l listItemJSON) toStore() store.List {
	return store.List{ID: l.UUID, Name: l.Name, CreatedAt: l.Time, UseBiometric: l.UseBiometric}
}

// handleCreateList はリスト作成を処理するハンドラを返す。
func (h *Handler) handleCreateList() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req listItemJSON
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		// クライアントが切断しても書き込みは最後まで行う
		ctx := context.WithoutCancel(c.Request.Context())
		if _, err := h.svc.CreateOrUpdateList(ctx, req.toStore()); err != nil {
			respondError(c, "リストの作成に失敗しました", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"uuid": req.UUID})
	}
}

// handleUpdateList はリスト更新を処理するハンドラを返す。
func (h *Handler) handleUpdateList() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req listItemJSON
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		ctx := context.WithoutCancel(c.Request.Context())
		if _, err := h.svc.UpdateList(ctx, req.toStore()); err != nil {
			respondError(c, "リストの更新に失敗しました", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"uuid": req.UUID})
	}
}

// handleAddEntry はエントリ追加を処理するハンドラを返す。
func (h *Handler) handleAddEntry() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req listEntryJSON
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		ctx := context.WithoutCancel(c.Request.Context())
		id, err := h.svc.AddListEntry(ctx, store.ListEntry{
			EntryID:     req.UniqueID,
			ListID:      req.UUID,
			Title:       req.Title,
			Description: req.Description,
			URL:         req.URL,
			ImageURL:    req.ImageURL,
			Source:      req.Source,
		})
		if err != nil {
			respondError(c, "エントリの追加に失敗しました", err)
			return
		}
		req.UniqueID = id
		c.JSON(http.StatusCreated, req)
	}
}

// handleUpdateBiometric は生体認証フラグ更新を処理するハンドラを返す。
func (h *Handler) handleUpdateBiometric() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req biometricRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		ctx := context.WithoutCancel(c.Request.Context())
		n, err := h.svc.UpdateBiometric(ctx, c.Param("id"), *req.UseBiometric)
		if err != nil {
			respondError(c, "生体認証フラグの更新に失敗しました", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"count": n})
	}
}

// handleAllLists は全リストをエントリ付きで返すハンドラを返す。
func (h *Handler) handleAllLists() gin.HandlerFunc {
	return func(c *gin.Context) {
		lists, err := h.svc.AllLists(c.Request.Context())
		if err != nil {
			respondError(c, "リスト一覧の取得に失敗しました", err)
			return
		}

		resp := make([]customListJSON, 0, len(lists))
		for _, l := range lists {
			resp = append(resp, customListJSON{
				Item: toListItemJSON(l.Item),
				List: toEntriesJSON(l.Entries),
			})
		}
		c.JSON(http.StatusOK, resp)
	}
}

// handleEntries はリストのエントリ一覧を返すハンドラを返す。
func (h *Handler) handleEntries() gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := h.svc.Entries(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, "エントリ一覧の取得に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, toEntriesJSON(entries))
	}
}

// handleEntryByID はエントリIDでエントリを取得するハンドラを返す。
// 見つからない場合は空配列を返す。
func (h *Handler) handleEntryByID() gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := h.svc.EntryByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, "エントリの取得に失敗しました", err)
			return
		}

		resp := make([]listEntryJSON, 0, 1)
		if e != nil {
			resp = append(resp, toListEntryJSON(*e))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// handleDeleteList はリスト本体の削除を処理するハンドラを返す。
func (h *Handler) handleDeleteList() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithoutCancel(c.Request.Context())
		n, err := h.svc.DeleteList(ctx, c.Param("id"))
		if err != nil {
			respondError(c, "リストの削除に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, deleteCountResponse{Count: n})
	}
}

// handleDeleteFullList はリストとエントリの同時削除を処理するハンドラを返す。
func (h *Handler) handleDeleteFullList() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithoutCancel(c.Request.Context())
		n, err := h.svc.DeleteFullList(ctx, c.Param("id"))
		if err != nil {
			respondError(c, "リストとエントリの削除に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, deleteCountResponse{Count: n})
	}
}

// handleRemoveEntry はエントリ1件の削除を処理するハンドラを返す。
func (h *Handler) handleRemoveEntry() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithoutCancel(c.Request.Context())
		n, err := h.svc.RemoveListEntry(ctx, c.Param("id"))
		if err != nil {
			respondError(c, "エントリの削除に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, deleteCountResponse{Count: n})
	}
}

// respondError はサービスのエラーをHTTPレスポンスに変換する。
func respondError(c *gin.Context, msg string, err error) {
	if errors.Is(err, ErrInvalidArgument) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	log.Printf("%s: %v", msg, err)
}
