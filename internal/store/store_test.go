package store

import (
	"path/filepath"
	"testing"
)

// openTestStore はテスト用のStoreをインメモリSQLiteで構築するヘルパー関数。
func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestOpen はファイルDBを開き直してもマイグレーションが重複適用されないことを検証する。
func TestOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "otaku.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Openでエラーが発生: %v", err)
	}
	if _, err := s.UpsertFavorite(t.Context(), Favorite{URL: "u1", Type: "Anime"}); err != nil {
		t.Fatalf("UpsertFavoriteでエラーが発生: %v", err)
	}
	s.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("2回目のOpenでエラーが発生: %v", err)
	}
	defer reopened.Close()

	if err := reopened.Ping(t.Context()); err != nil {
		t.Errorf("Pingでエラーが発生: %v", err)
	}
	f, err := reopened.FavoriteByURL(t.Context(), "u1")
	if err != nil {
		t.Fatalf("FavoriteByURLでエラーが発生: %v", err)
	}
	if f == nil {
		t.Error("開き直した後にお気に入りが見つからない")
	}
}

// TestFavorites はお気に入りの保存・取得・削除を検証する。
func TestFavorites(t *testing.T) {
	t.Parallel()

	t.Run("同じURLで保存すると上書きされ件数が増えないこと", func(t *testing.T) {
		t.Parallel()
		s := openTestStore(t)
		ctx := t.Context()

		key, err := s.UpsertFavorite(ctx, Favorite{URL: "u1", Title: "A", Type: "Manga", NumChapters: 3})
		if err != nil {
			t.Fatalf("UpsertFavoriteでエラーが発生: %v", err)
		}
		if key != "u1" {
			t.Errorf("キー: got %q, want %q", key, "u1")
		}
		if _, err := s.UpsertFavorite(ctx, Favorite{URL: "u1", Title: "B", Type: "Manga", NumChapters: 5, ShouldCheckForUpdate: true}); err != nil {
			t.Fatalf("2回目のUpsertFavoriteでエラーが発生: %v", err)
		}

		got, err := s.FavoritesByType(ctx, "Manga")
		if err != nil {
			t.Fatalf("FavoritesByTypeでエラーが発生: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("件数: got %d, want 1", len(got))
		}
		if got[0].Title != "B" || got[0].NumChapters != 5 || !got[0].ShouldCheckForUpdate {
			t.Errorf("上書き後のお気に入り = %+v", got[0])
		}
	})

	t.Run("種別で絞り込まれ登録順に並ぶこと", func(t *testing.T) {
		t.Parallel()
		s := openTestStore(t)
		ctx := t.Context()

		for _, f := range []Favorite{
			{URL: "m1", Type: "Manga"},
			{URL: "a1", Type: "Anime"},
			{URL: "m2", Type: "Manga"},
		} {
			if _, err := s.UpsertFavorite(ctx, f); err != nil {
				t.Fatalf("UpsertFavoriteでエラーが発生: %v", err)
			}
		}

		got, err := s.FavoritesByType(ctx, "Manga")
		if err != nil {
			t.Fatalf("FavoritesByTypeでエラーが発生: %v", err)
		}
		if len(got) != 2 || got[0].URL != "m1" || got[1].URL != "m2" {
			t.Errorf("FavoritesByType(Manga) = %+v", got)
		}

		none, err := s.FavoritesByType(ctx, "Novel")
		if err != nil {
			t.Fatalf("FavoritesByTypeでエラーが発生: %v", err)
		}
		if none == nil || len(none) != 0 {
			t.Errorf("該当なしのときは空スライスを返すこと: got %#v", none)
		}
	})

	t.Run("削除した後は取得できず既読チャプターは残ること", func(t *testing.T) {
		t.Parallel()
		s := openTestStore(t)
		ctx := t.Context()

		if _, err := s.UpsertFavorite(ctx, Favorite{URL: "u1", Type: "Anime"}); err != nil {
			t.Fatalf("UpsertFavoriteでエラーが発生: %v", err)
		}
		if _, err := s.UpsertChapter(ctx, Chapter{URL: "c1", Name: "第1話", FavoriteURL: "u1"}); err != nil {
			t.Fatalf("UpsertChapterでエラーが発生: %v", err)
		}

		n, err := s.DeleteFavorite(ctx, "u1")
		if err != nil {
			t.Fatalf("DeleteFavoriteでエラーが発生: %v", err)
		}
		if n != 1 {
			t.Errorf("削除件数: got %d, want 1", n)
		}

		f, err := s.FavoriteByURL(ctx, "u1")
		if err != nil {
			t.Fatalf("FavoriteByURLでエラーが発生: %v", err)
		}
		if f != nil {
			t.Errorf("削除後にお気に入りが残っている: %+v", f)
		}

		chapters, err := s.ChaptersByFavorite(ctx, "u1")
		if err != nil {
			t.Fatalf("ChaptersByFavoriteでエラーが発生: %v", err)
		}
		if len(chapters) != 1 {
			t.Errorf("既読チャプター件数: got %d, want 1", len(chapters))
		}

		n, err = s.DeleteFavorite(ctx, "u1")
		if err != nil {
			t.Fatalf("2回目のDeleteFavoriteでエラーが発生: %v", err)
		}
		if n != 0 {
			t.Errorf("存在しないキーの削除件数: got %d, want 0", n)
		}
	})
}

// TestChapters は既読チャプターの保存・取得・削除を検証する。
func TestChapters(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := t.Context()

	for _, c := range []Chapter{
		{URL: "c1", Name: "1", FavoriteURL: "f1"},
		{URL: "c2", Name: "2", FavoriteURL: "f1"},
		{URL: "c3", Name: "3", FavoriteURL: "f2"},
	} {
		if _, err := s.UpsertChapter(ctx, c); err != nil {
			t.Fatalf("UpsertChapterでエラーが発生: %v", err)
		}
	}
	if _, err := s.UpsertChapter(ctx, Chapter{URL: "c1", Name: "1改", FavoriteURL: "f1"}); err != nil {
		t.Fatalf("UpsertChapterでエラーが発生: %v", err)
	}

	got, err := s.ChaptersByFavorite(ctx, "f1")
	if err != nil {
		t.Fatalf("ChaptersByFavoriteでエラーが発生: %v", err)
	}
	if len(got) != 2 || got[0].Name != "1改" {
		t.Errorf("ChaptersByFavorite(f1) = %+v", got)
	}

	c, err := s.ChapterByURL(ctx, "c3")
	if err != nil {
		t.Fatalf("ChapterByURLでエラーが発生: %v", err)
	}
	if c == nil || c.FavoriteURL != "f2" {
		t.Errorf("ChapterByURL(c3) = %+v", c)
	}

	n, err := s.DeleteChapter(ctx, "c3")
	if err != nil {
		t.Fatalf("DeleteChapterでエラーが発生: %v", err)
	}
	if n != 1 {
		t.Errorf("削除件数: got %d, want 1", n)
	}
	if c, _ := s.ChapterByURL(ctx, "c3"); c != nil {
		t.Errorf("削除後に既読チャプターが残っている: %+v", c)
	}
}

// TestLists はリストとエントリの保存・取得・削除を検証する。
func TestLists(t *testing.T) {
	t.Parallel()

	t.Run("生体認証フラグだけが更新されること", func(t *testing.T) {
		t.Parallel()
		s := openTestStore(t)
		ctx := t.Context()

		if _, err := s.UpsertList(ctx, List{ID: "l1", Name: "積読", CreatedAt: 100}); err != nil {
			t.Fatalf("UpsertListでエラーが発生: %v", err)
		}
		n, err := s.UpdateListBiometric(ctx, "l1", true)
		if err != nil {
			t.Fatalf("UpdateListBiometricでエラーが発生: %v", err)
		}
		if n != 1 {
			t.Errorf("更新件数: got %d, want 1", n)
		}

		l, err := s.ListByID(ctx, "l1")
		if err != nil {
			t.Fatalf("ListByIDでエラーが発生: %v", err)
		}
		if l == nil || !l.UseBiometric || l.Name != "積読" || l.CreatedAt != 100 {
			t.Errorf("ListByID(l1) = %+v", l)
		}

		n, err = s.UpdateListBiometric(ctx, "missing", true)
		if err != nil {
			t.Fatalf("UpdateListBiometricでエラーが発生: %v", err)
		}
		if n != 0 {
			t.Errorf("存在しないリストの更新件数: got %d, want 0", n)
		}
	})

	t.Run("リスト本体だけを削除してもエントリは残ること", func(t *testing.T) {
		t.Parallel()
		s := openTestStore(t)
		ctx := t.Context()

		if _, err := s.UpsertList(ctx, List{ID: "l1", Name: "A", CreatedAt: 1}); err != nil {
			t.Fatalf("UpsertListでエラーが発生: %v", err)
		}
		if _, err := s.UpsertListEntry(ctx, ListEntry{EntryID: "e1", ListID: "l1", URL: "u1"}); err != nil {
			t.Fatalf("UpsertListEntryでエラーが発生: %v", err)
		}

		n, err := s.DeleteList(ctx, "l1")
		if err != nil {
			t.Fatalf("DeleteListでエラーが発生: %v", err)
		}
		if n != 1 {
			t.Errorf("削除件数: got %d, want 1", n)
		}

		entries, err := s.ListEntries(ctx, "l1")
		if err != nil {
			t.Fatalf("ListEntriesでエラーが発生: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("エントリ件数: got %d, want 1", len(entries))
		}
	})

	t.Run("リストとエントリの同時削除は合計件数を返すこと", func(t *testing.T) {
		t.Parallel()
		s := openTestStore(t)
		ctx := t.Context()

		if _, err := s.UpsertList(ctx, List{ID: "l1", Name: "A", CreatedAt: 1}); err != nil {
			t.Fatalf("UpsertListでエラーが発生: %v", err)
		}
		for _, id := range []string{"e1", "e2", "e3"} {
			if _, err := s.UpsertListEntry(ctx, ListEntry{EntryID: id, ListID: "l1"}); err != nil {
				t.Fatalf("UpsertListEntryでエラーが発生: %v", err)
			}
		}
		if _, err := s.UpsertListEntry(ctx, ListEntry{EntryID: "other", ListID: "l2"}); err != nil {
			t.Fatalf("UpsertListEntryでエラーが発生: %v", err)
		}

		n, err := s.DeleteListWithEntries(ctx, "l1")
		if err != nil {
			t.Fatalf("DeleteListWithEntriesでエラーが発生: %v", err)
		}
		if n != 4 {
			t.Errorf("削除件数: got %d, want 4", n)
		}

		if l, _ := s.ListByID(ctx, "l1"); l != nil {
			t.Errorf("削除後にリストが残っている: %+v", l)
		}
		if entries, _ := s.ListEntries(ctx, "l1"); len(entries) != 0 {
			t.Errorf("削除後にエントリが残っている: %+v", entries)
		}
		if entries, _ := s.ListEntries(ctx, "l2"); len(entries) != 1 {
			t.Errorf("他のリストのエントリが消えている: %+v", entries)
		}

		n, err = s.DeleteListWithEntries(ctx, "l1")
		if err != nil {
			t.Fatalf("2回目のDeleteListWithEntriesでエラーが発生: %v", err)
		}
		if n != 0 {
			t.Errorf("2回目の削除件数: got %d, want 0", n)
		}
	})

	t.Run("エントリ削除は所属リストIDを返すこと", func(t *testing.T) {
		t.Parallel()
		s := openTestStore(t)
		ctx := t.Context()

		if _, err := s.UpsertListEntry(ctx, ListEntry{EntryID: "e1", ListID: "l9", Title: "T"}); err != nil {
			t.Fatalf("UpsertListEntryでエラーが発生: %v", err)
		}
		e, err := s.ListEntryByID(ctx, "e1")
		if err != nil {
			t.Fatalf("ListEntryByIDでエラーが発生: %v", err)
		}
		if e == nil || e.Title != "T" {
			t.Errorf("ListEntryByID(e1) = %+v", e)
		}

		listID, n, err := s.DeleteListEntry(ctx, "e1")
		if err != nil {
			t.Fatalf("DeleteListEntryでエラーが発生: %v", err)
		}
		if listID != "l9" || n != 1 {
			t.Errorf("DeleteListEntry(e1) = (%q, %d), want (l9, 1)", listID, n)
		}

		listID, n, err = s.DeleteListEntry(ctx, "e1")
		if err != nil {
			t.Fatalf("2回目のDeleteListEntryでエラーが発生: %v", err)
		}
		if listID != "" || n != 0 {
			t.Errorf("2回目のDeleteListEntry(e1) = (%q, %d), want (\"\", 0)", listID, n)
		}
	})

	t.Run("リスト一覧は作成日時順に並ぶこと", func(t *testing.T) {
		t.Parallel()
		s := openTestStore(t)
		ctx := t.Context()

		for _, l := range []List{
			{ID: "late", Name: "B", CreatedAt: 200},
			{ID: "early", Name: "A", CreatedAt: 100},
		} {
			if _, err := s.UpsertList(ctx, l); err != nil {
				t.Fatalf("UpsertListでエラーが発生: %v", err)
			}
		}

		got, err := s.Lists(ctx)
		if err != nil {
			t.Fatalf("Listsでエラーが発生: %v", err)
		}
		if len(got) != 2 || got[0].ID != "early" || got[1].ID != "late" {
			t.Errorf("Lists() = %+v", got)
		}
	})
}
