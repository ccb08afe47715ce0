// Package cli はotakuworldコマンドのサブコマンドを定義する。
//
//	otakuworld serve   APIサーバーを起動する
//	otakuworld token   認証ゲート用のJWTを発行する
//	otakuworld watch   /sse に接続して変更イベントを表示する
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// 終了コード。
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitCommandError = 2 // 引数や設定の誤り
)

// ExitError は終了コード付きのエラー。
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// wrapExitError はerrに終了コードを付ける。
func wrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode はエラーから終了コードを取り出す。ExitError以外はExitFailure。
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// NewRootCommand はotakuworldのルートコマンドを生成する。
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otakuworld",
		Short: "otakuworld - お気に入り・既読チャプター・リストの同期バックエンド",
		Long: `otakuworldはお気に入り、既読チャプター、カスタムリストを保存し、
変更をServer-Sent Eventsで接続中のクライアントへ通知するバックエンドです。`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newTokenCommand())
	cmd.AddCommand(newWatchCommand())

	return cmd
}
