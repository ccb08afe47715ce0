package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/nao1215/otakuworld/pkg/middleware"
	"github.com/spf13/cobra"
)

// tokenOptions はtokenコマンドのフラグ。
type tokenOptions struct {
	secret string
	userID string
	email  string
	ttl    time.Duration
}

func newTokenCommand() *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "認証ゲート用のJWTを発行する",
		Long: `JWT_SECRETを設定したサーバーに接続するためのトークンを発行します。
--secret を省略した場合は環境変数 JWT_SECRET を使います。

Example:
  otakuworld token --user alice --secret s3cret
  JWT_SECRET=s3cret otakuworld token --user alice --ttl 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := opts.secret
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			token, err := middleware.GenerateJWT(secret, opts.userID, opts.email, opts.ttl)
			if err != nil {
				return wrapExitError(ExitCommandError, "トークンの発行に失敗", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.secret, "secret", "", "署名に使うシークレット")
	cmd.Flags().StringVar(&opts.userID, "user", "", "ユーザーID（必須）")
	cmd.Flags().StringVar(&opts.email, "email", "", "メールアドレス")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", middleware.DefaultTokenTTL, "有効期限")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
