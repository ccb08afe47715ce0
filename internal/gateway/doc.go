// Package gateway はLive Update Gatewayの内部実装を提供する。
//
// クライアントは GET /sse にServer-Sent Eventsで接続し、Event Busに流れる
// 変更イベントを受け取る。接続ごとにEvent Busの購読を1つ持ち、
// イベントの中継とキープアライブの2つの送り手が1本の送信キューに書き込み、
// 書き手は1つだけにする。
//
// クライアントの切断、書き込みエラー、Event Bus側からの切断、サーバー停止の
// いずれでも購読を解除して接続を閉じる。1つの接続の失敗が他の接続や
// イベントの発行側に影響することはない。
package gateway
