package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/otakuworld/pkg/client"
	"github.com/spf13/cobra"
)

// watchOptions はwatchコマンドのフラグ。
type watchOptions struct {
	url        string
	token      string
	heartbeats bool
	raw        bool
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "/sse に接続して変更イベントを表示する",
		Long: `Live Update Gatewayに接続し、受信した変更イベントを1行ずつ表示します。
サーバーがストリームを閉じるか、SIGINTを受け取ると終了します。

Example:
  otakuworld watch --url http://localhost:8080/otaku
  otakuworld watch --raw --heartbeats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "http://localhost:8080/otaku", "APIのベースURL")
	cmd.Flags().StringVar(&opts.token, "token", "", "Bearerトークン")
	cmd.Flags().BoolVar(&opts.heartbeats, "heartbeats", false, "キープアライブも表示する")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "データをJSONのまま表示する")

	return cmd
}

// runWatch はストリームが終わるまでフレームをwへ書き出す。
func runWatch(ctx context.Context, w io.Writer, opts *watchOptions) error {
	var copts []client.Option
	if opts.token != "" {
		copts = append(copts, client.WithToken(opts.token))
	}

	frames, err := client.New(opts.url, copts...).Subscribe(ctx)
	if err != nil {
		return wrapExitError(ExitFailure, "接続に失敗", err)
	}

	for f := range frames {
		if f.IsHeartbeat() {
			if opts.heartbeats {
				fmt.Fprintln(w, "heartbeat")
			}
			continue
		}
		if opts.raw {
			fmt.Fprintln(w, f.Data)
			continue
		}
		ev, err := f.Decode()
		if err != nil {
			fmt.Fprintf(w, "%s %s\n", f.Event, f.Data)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", ev.EventType, ev.ID)
	}
	return nil
}
