// Package client はotakuworld APIを呼び出すGoクライアントを提供する。
//
// お気に入り、既読チャプター、リストの各エンドポイントを型付きのメソッドで呼び出せるほか、
// Subscribeで /sse に接続して変更イベントをフレーム単位で受け取れる。
// watchコマンドとサーバーのエンドツーエンドテストがこのパッケージを使う。
package client
