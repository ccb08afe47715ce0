package favorite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/otakuworld/internal/store"
)

// maxKeyBodySize はキーだけを送るリクエストボディの上限サイズ。
const maxKeyBodySize = 64 << 10

// Handler はお気に入りと既読チャプターのHTTPハンドラ。
type Handler struct {
	// svc はFavorites Service。
	svc *Service
}

// NewHandler は新しいHandlerを生成する。
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes はお気に入りと既読チャプターのルーティングを設定する。
func (h *Handler) RegisterRoutes(rg gin.IRouter) {
	favorites := rg.Group("/favorites")
	{
		// お気に入り登録
		favorites.POST("", h.handleAddFavorite())
		// URLでお気に入りを取得
		favorites.GET("/item", h.handleFavoriteByURL())
		// 種別ごとのお気に入り一覧
		favorites.GET("/:type", h.handleFavoritesByType())
		// お気に入り削除
		favorites.DELETE("", h.handleDeleteFavorite())
	}

	chapters := rg.Group("/chapters")
	{
		// 既読チャプター登録
		chapters.POST("", h.handleAddChapter())
		// お気に入りに紐づく既読チャプター一覧
		chapters.GET("", h.handleChapterProgress())
		// URLで既読チャプターを取得
		chapters.GET("/item", h.handleChapterByURL())
		// 既読チャプター削除
		chapters.DELETE("", h.handleRemoveChapter())
	}
}

// favoriteJSON はお気に入りのJSON構造。
type favoriteJSON struct {
	// URL は作品のURL。
	URL string `json:"url" binding:"required"`
	// Title はタイトル。
	Title string `json:"title"`
	// Description は説明文。
	Description string `json:"description"`
	// ImageURL はサムネイル画像のURL。
	ImageURL string `json:"imageUrl"`
	// Source は取得元ソースの識別子。
	Source string `json:"source"`
	// NumChapters はチャプター数。
	NumChapters int `json:"numChapters"`
	// ShouldCheckForUpdate は更新チェック対象かどうか。
	ShouldCheckForUpdate bool `json:"shouldCheckForUpdate"`
	// Type はメディア種別。
	Type string `json:"type"`
}

// chapterJSON は既読チャプターのJSON構造。
type chapterJSON struct {
	// URL はチャプターのURL。
	URL string `json:"url" binding:"required"`
	// Name はチャプター名。
	Name string `json:"name"`
	// FavoriteURL は所属するお気に入りのURL。
	FavoriteURL string `json:"favoriteUrl"`
}

// urlRequest はURLだけを持つリクエストのJSON構造。
type urlRequest struct {
	// URL は対象のURL。
	URL string `json:"url" binding:"required"`
}

// deleteCountResponse は削除件数のJSONレスポンス構造。
type deleteCountResponse struct {
	// Count は削除した件数。
	Count int64 `json:"count"`
}

// toFavoriteJSON はstore.FavoriteをJSON構造に変換する。
func toFavoriteJSON(f store.Favorite) favoriteJSON {
	return favoriteJSON{
		URL:                  f.URL,
		Title:                f.Title,
		Description:          f.Description,
		ImageURL:             f.ImageURL,
		Source:               f.Source,
		NumChapters:          f.NumChapters,
		ShouldCheckForUpdate: f.ShouldCheckForUpdate,
		Type:                 f.Type,
	}
}

// toStore はJSON構造をstore.Favoriteに変換する。
func (f favoriteJSON) toStore() store.Favorite {
	return store.Favorite{
		URL:                  f.URL,
		Title:                f.Title,
		Description:          f.Description,
		ImageURL:             f.ImageURL,
		Source:               f.Source,
		NumChapters:          f.NumChapters,
		ShouldCheckForUpdate: f.ShouldCheckForUpdate,
		Type:                 f.Type,
	}
}

// toChapterJSON はstore.ChapterをJSON構造に変換する。
func toChapterJSON(c store.Chapter) chapterJSON {
	return chapterJSON{URL: c.URL, Name: c.Name, FavoriteURL: c.FavoriteURL}
}

// handleAddFavorite はお気に入り登録を処理するハンドラを返す。
func (h *Handler) handleAddFavorite() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req favoriteJSON
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		// クライアントが切断しても書き込みは最後まで行う
		ctx := context.WithoutCancel(c.Request.Context())
		if _, err := h.svc.AddFavorite(ctx, req.toStore()); err != nil {
			respondError(c, "お気に入りの登録に失敗しました", err)
			return
		}
		c.JSON(http.StatusCreated, req)
	}
}

// handleFavoritesByType は種別ごとのお気に入り一覧を返すハンドラを返す。
func (h *Handler) handleFavoritesByType() gin.HandlerFunc {
	return func(c *gin.Context) {
		favorites, err := h.svc.FavoritesByType(c.Request.Context(), c.Param("type"))
		if err != nil {
			respondError(c, "お気に入り一覧の取得に失敗しました", err)
			return
		}

		resp := make([]favoriteJSON, 0, len(favorites))
		for _, f := range favorites {
			resp = append(resp, toFavoriteJSON(f))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// handleFavoriteByURL はURLでお気に入りを取得するハンドラを返す。
// 見つからない場合は空配列を返す。
func (h *Handler) handleFavoriteByURL() gin.HandlerFunc {
	return func(c *gin.Context) {
		url, err := readKey(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		f, err := h.svc.FavoriteByURL(c.Request.Context(), url)
		if err != nil {
			respondError(c, "お気に入りの取得に失敗しました", err)
			return
		}

		resp := make([]favoriteJSON, 0, 1)
		if f != nil {
			resp = append(resp, toFavoriteJSON(*f))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// handleDeleteFavorite はお気に入り削除を処理するハンドラを返す。
func (h *Handler) handleDeleteFavorite() gin.HandlerFunc {
	return func(c *gin.Context) {
		url, err := bindURL(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := context.WithoutCancel(c.Request.Context())
		n, err := h.svc.DeleteFavorite(ctx, url)
		if err != nil {
			respondError(c, "お気に入りの削除に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, deleteCountResponse{Count: n})
	}
}

// handleAddChapter は既読チャプター登録を処理するハンドラを返す。
func (h *Handler) handleAddChapter() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chapterJSON
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		ctx := context.WithoutCancel(c.Request.Context())
		if _, err := h.svc.AddChapterWatched(ctx, store.Chapter{
			URL:         req.URL,
			Name:        req.Name,
			FavoriteURL: req.FavoriteURL,
		}); err != nil {
			respondError(c, "既読チャプターの登録に失敗しました", err)
			return
		}
		c.JSON(http.StatusCreated, req)
	}
}

// handleChapterProgress はお気に入りに紐づく既読チャプター一覧を返すハンドラを返す。
// お気に入りのURLはボディの {"url": ...} か url クエリで受け取る。
func (h *Handler) handleChapterProgress() gin.HandlerFunc {
	return func(c *gin.Context) {
		favoriteURL, err := bindURL(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		chapters, err := h.svc.ChapterProgress(c.Request.Context(), favoriteURL)
		if err != nil {
			respondError(c, "既読チャプター一覧の取得に失敗しました", err)
			return
		}

		resp := make([]chapterJSON, 0, len(chapters))
		for _, ch := range chapters {
			resp = append(resp, toChapterJSON(ch))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// handleChapterByURL はURLで既読チャプターを取得するハンドラを返す。
func (h *Handler) handleChapterByURL() gin.HandlerFunc {
	return func(c *gin.Context) {
		url, err := readKey(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ch, err := h.svc.ChapterByURL(c.Request.Context(), url)
		if err != nil {
			respondError(c, "既読チャプターの取得に失敗しました", err)
			return
		}

		resp := make([]chapterJSON, 0, 1)
		if ch != nil {
			resp = append(resp, toChapterJSON(*ch))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// handleRemoveChapter は既読チャプター削除を処理するハンドラを返す。
func (h *Handler) handleRemoveChapter() gin.HandlerFunc {
	return func(c *gin.Context) {
		url, err := bindURL(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := context.WithoutCancel(c.Request.Context())
		n, err := h.svc.RemoveChapterWatched(ctx, url)
		if err != nil {
			respondError(c, "既読チャプターの削除に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, deleteCountResponse{Count: n})
	}
}

// respondError はサービスのエラーをHTTPレスポンスに変換する。
// ErrInvalidArgumentは400、それ以外は500としてログに記録する。
func respondError(c *gin.Context, msg string, err error) {
	if errors.Is(err, ErrInvalidArgument) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	log.Printf("%s: %v", msg, err)
}

// bindURL はボディの {"url": ...} からURLを取り出す。
// ボディが空の場合は url クエリを使う。
func bindURL(c *gin.Context) (string, error) {
	if c.Request.ContentLength == 0 {
		if q := c.Query("url"); q != "" {
			return q, nil
		}
	}

	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", fmt.Errorf("リクエストが不正です: %v", err)
	}
	return req.URL, nil
}

// readKey はボディからキーを取り出す。
// プレーンテキスト、JSON文字列、{"url": ...} のいずれも受け付け、
// ボディが空の場合は url クエリを使う。
func readKey(c *gin.Context) (string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxKeyBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", fmt.Errorf("リクエストボディが大きすぎます: 上限 %d バイト", tooLarge.Limit)
		}
		return "", fmt.Errorf("リクエストボディの読み込みに失敗: %w", err)
	}

	key := strings.TrimSpace(string(body))
	switch {
	case strings.HasPrefix(key, `"`):
		if err := json.Unmarshal([]byte(key), &key); err != nil {
			return "", fmt.Errorf("リクエストが不正です: %v", err)
		}
	case strings.HasPrefix(key, "{"):
		var req urlRequest
		if err := json.Unmarshal([]byte(key), &req); err != nil {
			return "", fmt.Errorf("リクエストが不正です: %v", err)
		}
		key = req.URL
	}

	if key == "" {
		key = c.Query("url")
	}
	if key == "" {
		return "", errors.New("urlが指定されていません")
	}
	return key, nil
}
