// Package favorite はお気に入りと既読チャプターを管理するFavorites Serviceを提供する。
//
// すべての変更操作は「保存してから通知」の順で行う。
// Record Storeへの書き込みが成功したときにだけEvent Busへイベントを発行し、
// 書き込みに失敗した場合はイベントを発行せずにエラーを呼び出し元へ返す。
//
// 削除操作は削除件数を必ず返すが、イベントは1件以上削除できたときにだけ発行する。
// 既読チャプターはお気に入りのURLを持つだけで、お気に入りを削除しても連動して消えない。
//
// エンドポイント:
//   - POST   /favorites        お気に入り登録 (201)
//   - GET    /favorites/:type  種別ごとの一覧
//   - GET    /favorites/item   URLで取得 (0件または1件の配列)
//   - DELETE /favorites        お気に入り削除 ({count})
//   - POST   /chapters         既読チャプター登録 (201)
//   - GET    /chapters         お気に入りに紐づく既読チャプター一覧
//   - GET    /chapters/item    URLで取得 (0件または1件の配列)
//   - DELETE /chapters         既読チャプター削除 ({count})
package favorite
