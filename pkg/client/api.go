package client

import (
	"context"
	"net/url"
)

// Favorite はお気に入りのJSON表現。
type Favorite struct {
	URL                  string `json:"url"`
	Title                string `json:"title"`
	Description          string `json:"description"`
	ImageURL             string `json:"imageUrl"`
	Source               string `json:"source"`
	NumChapters          int    `json:"numChapters"`
	ShouldCheckForUpdate bool   `json:"shouldCheckForUpdate"`
	Type                 string `json:"type"`
}

// Chapter は既読チャプターのJSON表現。
type Chapter struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	FavoriteURL string `json:"favoriteUrl"`
}

// ListItem はリスト本体のJSON表現。
type ListItem struct {
	UUID         string `json:"uuid"`
	Name         string `json:"name"`
	Time         int64  `json:"time"`
	UseBiometric bool   `json:"useBiometric"`
}

// ListEntry はリストエントリのJSON表現。
type ListEntry struct {
	UniqueID    string `json:"uniqueId"`
	UUID        string `json:"uuid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	ImageURL    string `json:"imageUrl"`
	Source      string `json:"source"`
}

// CustomList はエントリ付きリストのJSON表現。
type CustomList struct {
	Item ListItem    `json:"item"`
	List []ListEntry `json:"list"`
}

// deleteCount は削除件数のレスポンス。
type deleteCount struct {
	Count int64 `json:"count"`
}

// urlBody はURLだけを送るリクエストボディ。
type urlBody struct {
	URL string `json:"url"`
}

// AddFavorite はお気に入りを登録する。
func (c *Client) AddFavorite(ctx context.Context, f Favorite) error {
	return c.PostJSON(ctx, "/favorites", f, nil)
}

// FavoritesByType は指定したメディア種別のお気に入りを取得する。
func (c *Client) FavoritesByType(ctx context.Context, mediaType string) ([]Favorite, error) {
	var favorites []Favorite
	if err := c.GetJSON(ctx, "/favorites/"+url.PathEscape(mediaType), nil, &favorites); err != nil {
		return nil, err
	}
	return favorites, nil
}

// FavoriteByURL はURLでお気に入りを取得する。見つからない場合はnilを返す。
func (c *Client) FavoriteByURL(ctx context.Context, favoriteURL string) (*Favorite, error) {
	var favorites []Favorite
	if err := c.GetJSON(ctx, "/favorites/item", favoriteURL, &favorites); err != nil {
		return nil, err
	}
	if len(favorites) == 0 {
		return nil, nil
	}
	return &favorites[0], nil
}

// DeleteFavorite はお気に入りを削除し、削除件数を返す。
func (c *Client) DeleteFavorite(ctx context.Context, favoriteURL string) (int64, error) {
	var resp deleteCount
	if err := c.DeleteJSON(ctx, "/favorites", urlBody{URL: favoriteURL}, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// AddChapter は既読チャプターを登録する。
func (c *Client) AddChapter(ctx context.Context, ch Chapter) error {
	return c.PostJSON(ctx, "/chapters", ch, nil)
}

// ChapterProgress はお気に入りに紐づく既読チャプターを取得する。
func (c *Client) ChapterProgress(ctx context.Context, favoriteURL string) ([]Chapter, error) {
	var chapters []Chapter
	if err := c.GetJSON(ctx, "/chapters", urlBody{URL: favoriteURL}, &chapters); err != nil {
		return nil, err
	}
	return chapters, nil
}

// ChapterByURL はURLで既読チャプターを取得する。見つからない場合はnilを返す。
func (c *Client) ChapterByURL(ctx context.Context, chapterURL string) (*Chapter, error) {
	var chapters []Chapter
	if err := c.GetJSON(ctx, "/chapters/item", chapterURL, &chapters); err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		return nil, nil
	}
	return &chapters[0], nil
}

// RemoveChapter は既読チャプターを削除し、削除件数を返す。
func (c *Client) RemoveChapter(ctx context.Context, chapterURL string) (int64, error) {
	var resp deleteCount
	if err := c.DeleteJSON(ctx, "/chapters", urlBody{URL: chapterURL}, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// CreateList はリストを作成する。
func (c *Client) CreateList(ctx context.Context, l ListItem) error {
	return c.PostJSON(ctx, "/lists", l, nil)
}

// UpdateList はリストを上書きする。
func (c *Client) UpdateList(ctx context.Context, l ListItem) error {
	return c.PatchJSON(ctx, "/lists", l, nil)
}

// AddListEntry はエントリを追加し、採番済みのエントリを返す。
func (c *Client) AddListEntry(ctx context.Context, e ListEntry) (ListEntry, error) {
	var saved ListEntry
	if err := c.PostJSON(ctx, "/lists/item", e, &saved); err != nil {
		return ListEntry{}, err
	}
	return saved, nil
}

// UpdateBiometric はリストの生体認証フラグを更新する。
func (c *Client) UpdateBiometric(ctx context.Context, listID string, useBiometric bool) error {
	body := map[string]bool{"useBiometric": useBiometric}
	return c.PatchJSON(ctx, "/lists/biometric/"+url.PathEscape(listID), body, nil)
}

// AllLists は全リストをエントリ付きで取得する。
func (c *Client) AllLists(ctx context.Context) ([]CustomList, error) {
	var lists []CustomList
	if err := c.GetJSON(ctx, "/lists", nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// ListEntries はリストのエントリを取得する。
func (c *Client) ListEntries(ctx context.Context, listID string) ([]ListEntry, error) {
	var entries []ListEntry
	if err := c.GetJSON(ctx, "/lists/"+url.PathEscape(listID), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteList はリスト本体だけを削除し、削除件数を返す。
func (c *Client) DeleteList(ctx context.Context, listID string) (int64, error) {
	return c.deleteByPath(ctx, "/lists/"+url.PathEscape(listID))
}

// DeleteFullList はリストとエントリをまとめて削除し、合計の削除件数を返す。
func (c *Client) DeleteFullList(ctx context.Context, listID string) (int64, error) {
	return c.deleteByPath(ctx, "/lists/all/"+url.PathEscape(listID))
}

// RemoveListEntry はエントリを1件削除し、削除件数を返す。
func (c *Client) RemoveListEntry(ctx context.Context, entryID string) (int64, error) {
	return c.deleteByPath(ctx, "/lists/item/"+url.PathEscape(entryID))
}

// deleteByPath はボディなしのDELETEを送り、削除件数を返す。
func (c *Client) deleteByPath(ctx context.Context, path string) (int64, error) {
	var resp deleteCount
	if err := c.DeleteJSON(ctx, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}
