package store

import (
	"context"
	"database/sql"
	"fmt"
)

// List はユーザーが作成した名前付きリスト。
type List struct {
	// ID はクライアントが採番するリストID。主キー。
	ID string
	// Name はリスト名。
	Name string
	// CreatedAt は作成日時（エポックミリ秒）。
	CreatedAt int64
	// UseBiometric は開くときに生体認証を要求するかどうか。
	UseBiometric bool
}

// ListEntry はリストに含まれる1件のエントリ。
// ListID はリストを指すが、リストを削除しても連動して削除されない。
type ListEntry struct {
	// EntryID はエントリID。主キー。
	EntryID string
	// ListID は所属するリストID。
	ListID string
	// Title はタイトル。
	Title string
	// Description は説明文。
	Description string
	// URL は作品のURL。
	URL string
	// ImageURL はサムネイル画像のURL。
	ImageURL string
	// Source は取得元ソースの識別子。
	Source string
}

// CustomList はリストとそのエントリを組み合わせた読み取り用モデル。永続化はしない。
type CustomList struct {
	// Item はリスト本体。
	Item List
	// Entries はリストに含まれるエントリ。
	Entries []ListEntry
}

const entryColumns = `entry_id, list_id, title, description, url, image_url, source`

// scanList は1行をListに読み込む。
func scanList(row scanner) (List, error) {
	var (
		l         List
		biometric int64
	)
	if err := row.Scan(&l.ID, &l.Name, &l.CreatedAt, &biometric); err != nil {
		return List{}, err
	}
	l.UseBiometric = biometric != 0
	return l, nil
}

// scanEntry は1行をListEntryに読み込む。
func scanEntry(row scanner) (ListEntry, error) {
	var e ListEntry
	err := row.Scan(&e.EntryID, &e.ListID, &e.Title, &e.Description, &e.URL, &e.ImageURL, &e.Source)
	return e, err
}

// UpsertList はリストをIDをキーに追加または上書きし、保存したキーを返す。
func (s *Store) UpsertList(ctx context.Context, l List) (string, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_lists (list_id, name, created_at, use_biometric)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(list_id) DO UPDATE SET
			name = excluded.name,
			created_at = excluded.created_at,
			use_biometric = excluded.use_biometric`,
		l.ID, l.Name, l.CreatedAt, boolToInt(l.UseBiometric),
	)
	if err != nil {
		return "", fmt.Errorf("リストの保存に失敗: %w", err)
	}
	return l.ID, nil
}

// UpdateListBiometric はリストの生体認証フラグだけを更新し、更新件数を返す。
func (s *Store) UpdateListBiometric(ctx context.Context, listID string, useBiometric bool) (int64, error) {
	n, err := affected(s.db.ExecContext(ctx,
		`UPDATE custom_lists SET use_biometric = ? WHERE list_id = ?`, boolToInt(useBiometric), listID))
	if err != nil {
		return 0, fmt.Errorf("生体認証フラグの更新に失敗: %w", err)
	}
	return n, nil
}

// Lists は全リストを作成日時順に返す。
func (s *Store) Lists(ctx context.Context) ([]List, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT list_id, name, created_at, use_biometric FROM custom_lists ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("リスト一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	lists := make([]List, 0)
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("リストの読み込みに失敗: %w", err)
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// ListByID はIDでリストを取得する。存在しない場合はnilを返す。
func (s *Store) ListByID(ctx context.Context, listID string) (*List, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT list_id, name, created_at, use_biometric FROM custom_lists WHERE list_id = ?`, listID)
	l, err := scanList(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("リストの取得に失敗: %w", err)
	}
	return &l, nil
}

// DeleteList はリスト本体だけを削除し、削除件数を返す。エントリは残る。
func (s *Store) DeleteList(ctx context.Context, listID string) (int64, error) {
	n, err := affected(s.db.ExecContext(ctx, `DELETE FROM custom_lists WHERE list_id = ?`, listID))
	if err != nil {
		return 0, fmt.Errorf("リストの削除に失敗: %w", err)
	}
	return n, nil
}

// UpsertListEntry はエントリをIDをキーに追加または上書きし、保存したキーを返す。
func (s *Store) UpsertListEntry(ctx context.Context, e ListEntry) (string, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_list_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entry_id) DO UPDATE SET
			list_id = excluded.list_id,
			title = excluded.title,
			description = excluded.description,
			url = excluded.url,
			image_url = excluded.image_url,
			source = excluded.source`,
		e.EntryID, e.ListID, e.Title, e.Description, e.URL, e.ImageURL, e.Source,
	)
	if err != nil {
		return "", fmt.Errorf("リストエントリの保存に失敗: %w", err)
	}
	return e.EntryID, nil
}

// ListEntries はリストIDに一致するエントリを登録順に返す。
func (s *Store) ListEntries(ctx context.Context, listID string) ([]ListEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM custom_list_entries WHERE list_id = ? ORDER BY rowid`, listID)
	if err != nil {
		return nil, fmt.Errorf("リストエントリ一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]ListEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("リストエントリの読み込みに失敗: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListEntryByID はエントリIDでエントリを取得する。存在しない場合はnilを返す。
func (s *Store) ListEntryByID(ctx context.Context, entryID string) (*ListEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM custom_list_entries WHERE entry_id = ?`, entryID)
	e, err := scanEntry(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("リストエントリの取得に失敗: %w", err)
	}
	return &e, nil
}

// DeleteListEntry はエントリを1件削除し、所属していたリストIDと削除件数を返す。
// エントリが存在しない場合は空のリストIDと0を返す。
func (s *Store) DeleteListEntry(ctx context.Context, entryID string) (string, int64, error) {
	var (
		listID string
		n      int64
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT list_id FROM custom_list_entries WHERE entry_id = ?`, entryID).Scan(&listID)
		if isNoRows(err) {
			return nil
		}
		if err != nil {
			return err
		}
		n, err = affected(tx.ExecContext(ctx, `DELETE FROM custom_list_entries WHERE entry_id = ?`, entryID))
		return err
	})
	if err != nil {
		return "", 0, fmt.Errorf("リストエントリの削除に失敗: %w", err)
	}
	return listID, n, nil
}

// DeleteListWithEntries はリスト本体と、そのリストIDを持つ全エントリを1トランザクションで削除する。
// 戻り値は両方の削除件数の合計。
func (s *Store) DeleteListWithEntries(ctx context.Context, listID string) (int64, error) {
	var total int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		lists, err := affected(tx.ExecContext(ctx, `DELETE FROM custom_lists WHERE list_id = ?`, listID))
		if err != nil {
			return err
		}
		entries, err := affected(tx.ExecContext(ctx, `DELETE FROM custom_list_entries WHERE list_id = ?`, listID))
		if err != nil {
			return err
		}
		total = lists + entries
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("リストとエントリの削除に失敗: %w", err)
	}
	return total, nil
}

// withTx はfnをトランザクション内で実行する。fnがエラーを返した場合はロールバックする。
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
