// otakuworldのエントリポイント。
// お気に入り・既読チャプター・リストのAPIと、変更を通知するSSEゲートウェイを1プロセスで提供する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/otakuworld/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		log.Printf("otakuworldの実行に失敗: %v", err)
		os.Exit(cli.GetExitCode(err))
	}
}
