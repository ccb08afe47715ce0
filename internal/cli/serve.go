package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/otakuworld/internal/config"
	"github.com/nao1215/otakuworld/internal/server"
	"github.com/spf13/cobra"
)

// serveOptions はserveコマンドのフラグ。
type serveOptions struct {
	configPath string
	port       string
	dbPath     string
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "APIサーバーを起動する",
		Long: `APIサーバーを起動します。SIGINT/SIGTERMでSSE接続を閉じてから停止します。

設定は「デフォルト値 → --config のYAML → 環境変数 → フラグ」の順に上書きされます。

Example:
  otakuworld serve
  otakuworld serve --config ./otakuworld.yaml --port 9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "YAML設定ファイルのパス")
	cmd.Flags().StringVar(&opts.port, "port", "", "リッスンポート（設定より優先）")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLiteデータベースのパス（設定より優先）")

	return cmd
}

// runServe は設定を読み込んでサーバーをctxが終わるまで動かす。
func runServe(ctx context.Context, opts *serveOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return wrapExitError(ExitCommandError, "設定の読み込みに失敗", err)
	}
	if opts.port != "" {
		cfg.Port = opts.port
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}

	s, err := server.NewServer(cfg)
	if err != nil {
		return wrapExitError(ExitCommandError, "サーバーの初期化に失敗", err)
	}
	return s.Run(ctx)
}
