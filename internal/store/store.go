// Package store はお気に入り・既読チャプター・リストを保存するRecord Storeを提供する。
//
// SQLiteを1接続で使い、各操作はそれぞれ1つのトランザクション境界の中で完結する。
// upsertはキー単位でアトミックに行われ、読み手が書きかけのレコードを見ることはない。
// リストとエントリの同時削除だけは、2つのテーブルにまたがる1トランザクションで実行する。
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/nao1215/otakuworld/pkg/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// pragmas は接続直後に適用するPRAGMA。
var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
}

// Store はSQLiteをバックエンドとするRecord Store。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// Open は指定パスのSQLiteデータベースを開き、マイグレーションを適用する。
// ":memory:" を指定するとインメモリDBになる。
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}

	// SQLiteの書き込みは1本だけなので接続も1本に固定する。
	// インメモリDBが接続ごとに別物になるのもこれで防げる。
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s の適用に失敗: %w", p, err)
		}
	}

	if _, err := migration.Run(context.Background(), db, migrationsFS, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	return &Store{db: db}, nil
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping はデータベースに到達できるかを確認する。
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// scanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type scanner interface {
	Scan(dest ...any) error
}

// affected はExecの結果から影響を受けた行数を取り出す。
func affected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return n, nil
}

// isNoRows は行が見つからなかったことを表すエラーかどうかを返す。
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// boolToInt はSQLiteに保存するためにboolを0/1へ変換する。
func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
