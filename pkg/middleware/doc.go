// Package middleware はotakuworldのHTTP APIで使うGinミドルウェアを提供する。
//
// パニックリカバリ、CORS、JWTによる認証ゲートを含む。
// 認証ゲートはシークレット未設定なら素通しになり、ローカルの単一ユーザー運用を妨げない。
package middleware
