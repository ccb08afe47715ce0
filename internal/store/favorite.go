package store

import (
	"context"
	"fmt"
)

// Favorite はお気に入り登録された作品。URLごとに最大1件。
type Favorite struct {
	// URL は作品のURL。主キー。
	URL string
	// Title はタイトル。
	Title string
	// Description は説明文。
	Description string
	// ImageURL はサムネイル画像のURL。
	ImageURL string
	// Source は取得元ソースの識別子。
	Source string
	// NumChapters はチャプター数。
	NumChapters int
	// ShouldCheckForUpdate は更新チェック対象かどうか。
	ShouldCheckForUpdate bool
	// Type はメディア種別。
	Type string
}

// Chapter はチャプターの既読記録。
// FavoriteURL はお気に入りを指すが、お気に入りを削除しても連動して削除されない。
type Chapter struct {
	// URL はチャプターのURL。主キー。
	URL string
	// Name はチャプター名。
	Name string
	// FavoriteURL は所属するお気に入りのURL。
	FavoriteURL string
}

const favoriteColumns = `url, title, description, image_url, source, num_chapters, should_check_for_update, type`

// scanFavorite は1行をFavoriteに読み込む。
func scanFavorite(row scanner) (Favorite, error) {
	var (
		f     Favorite
		check int64
	)
	if err := row.Scan(&f.URL, &f.Title, &f.Description, &f.ImageURL, &f.Source, &f.NumChapters, &check, &f.Type); err != nil {
		return Favorite{}, err
	}
	f.ShouldCheckForUpdate = check != 0
	return f, nil
}

// UpsertFavorite はお気に入りをURLをキーに追加または上書きし、保存したキーを返す。
func (s *Store) UpsertFavorite(ctx context.Context, f Favorite) (string, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (`+favoriteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			image_url = excluded.image_url,
			source = excluded.source,
			num_chapters = excluded.num_chapters,
			should_check_for_update = excluded.should_check_for_update,
			type = excluded.type`,
		f.URL, f.Title, f.Description, f.ImageURL, f.Source, f.NumChapters, boolToInt(f.ShouldCheckForUpdate), f.Type,
	)
	if err != nil {
		return "", fmt.Errorf("お気に入りの保存に失敗: %w", err)
	}
	return f.URL, nil
}

// FavoritesByType は指定したメディア種別のお気に入りを登録順に返す。
func (s *Store) FavoritesByType(ctx context.Context, mediaType string) ([]Favorite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+favoriteColumns+` FROM favorites WHERE type = ? ORDER BY rowid`, mediaType)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	favorites := make([]Favorite, 0)
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("お気に入りの読み込みに失敗: %w", err)
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// FavoriteByURL はURLでお気に入りを取得する。存在しない場合はnilを返す。
func (s *Store) FavoriteByURL(ctx context.Context, url string) (*Favorite, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+favoriteColumns+` FROM favorites WHERE url = ?`, url)
	f, err := scanFavorite(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("お気に入りの取得に失敗: %w", err)
	}
	return &f, nil
}

// DeleteFavorite はURLでお気に入りを削除し、削除件数を返す。
// 既読チャプターは削除しない。
func (s *Store) DeleteFavorite(ctx context.Context, url string) (int64, error) {
	n, err := affected(s.db.ExecContext(ctx, `DELETE FROM favorites WHERE url = ?`, url))
	if err != nil {
		return 0, fmt.Errorf("お気に入りの削除に失敗: %w", err)
	}
	return n, nil
}

// UpsertChapter は既読チャプターをURLをキーに追加または上書きし、保存したキーを返す。
func (s *Store) UpsertChapter(ctx context.Context, c Chapter) (string, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chapters_watched (url, name, favorite_url)
		VALUES (?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			name = excluded.name,
			favorite_url = excluded.favorite_url`,
		c.URL, c.Name, c.FavoriteURL,
	)
	if err != nil {
		return "", fmt.Errorf("既読チャプターの保存に失敗: %w", err)
	}
	return c.URL, nil
}

// ChaptersByFavorite はお気に入りに紐づく既読チャプターを返す。
func (s *Store) ChaptersByFavorite(ctx context.Context, favoriteURL string) ([]Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, name, favorite_url FROM chapters_watched WHERE favorite_url = ? ORDER BY rowid`, favoriteURL)
	if err != nil {
		return nil, fmt.Errorf("既読チャプター一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	chapters := make([]Chapter, 0)
	for rows.Next() {
		var c Chapter
		if err := rows.Scan(&c.URL, &c.Name, &c.FavoriteURL); err != nil {
			return nil, fmt.Errorf("既読チャプターの読み込みに失敗: %w", err)
		}
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

// ChapterByURL はURLで既読チャプターを取得する。存在しない場合はnilを返す。
func (s *Store) ChapterByURL(ctx context.Context, url string) (*Chapter, error) {
	var c Chapter
	err := s.db.QueryRowContext(ctx,
		`SELECT url, name, favorite_url FROM chapters_watched WHERE url = ?`, url,
	).Scan(&c.URL, &c.Name, &c.FavoriteURL)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("既読チャプターの取得に失敗: %w", err)
	}
	return &c, nil
}

// DeleteChapter はURLで既読チャプターを削除し、削除件数を返す。
func (s *Store) DeleteChapter(ctx context.Context, url string) (int64, error) {
	n, err := affected(s.db.ExecContext(ctx, `DELETE FROM chapters_watched WHERE url = ?`, url))
	if err != nil {
		return 0, fmt.Errorf("既読チャプターの削除に失敗: %w", err)
	}
	return n, nil
}
