// Package config はotakuworldサーバーの設定を読み込む。
//
// 設定は「組み込みのデフォルト値 → YAMLファイル → 環境変数」の順に上書きされる。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/otakuworld/pkg/event"
	"gopkg.in/yaml.v3"
)

// Config はサーバー全体の設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `yaml:"port"`
	// DBPath はSQLiteデータベースファイルのパス。":memory:" も指定できる。
	DBPath string `yaml:"db_path"`
	// BasePath はAPIをマウントするパス。
	BasePath string `yaml:"base_path"`
	// JWTSecret は認証ゲートのシークレット。空なら認証しない。
	JWTSecret string `yaml:"jwt_secret"`
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string `yaml:"allowed_origins"`
	// SSEKeepalive はSSEのキープアライブ送信間隔。
	SSEKeepalive time.Duration `yaml:"sse_keepalive"`
	// SubscriberBuffer はEvent Busの購読者ごとのバッファサイズ。
	SubscriberBuffer int `yaml:"subscriber_buffer"`
	// SlowSubscriberPolicy は詰まった購読者への扱い（drop または disconnect）。
	SlowSubscriberPolicy string `yaml:"slow_subscriber_policy"`
	// ShutdownTimeout はグレースフルシャットダウンの待ち時間。
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default は組み込みのデフォルト設定を返す。
func Default() Config {
	return Config{
		Port:                 "8080",
		DBPath:               "otakuworld.db",
		BasePath:             "/otaku",
		AllowedOrigins:       []string{"http://localhost:3000"},
		SSEKeepalive:         10 * time.Second,
		SubscriberBuffer:     event.DefaultBufferSize,
		SlowSubscriberPolicy: string(event.PolicyDisconnect),
		ShutdownTimeout:      10 * time.Second,
	}
}

// Load はデフォルト値にYAMLファイルと環境変数を重ねた設定を返す。
// pathが空の場合はファイルを読まない。
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

// load は環境変数の参照先を差し替えられるLoadの実体。
func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	cfg.BasePath = normalizeBasePath(cfg.BasePath)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv は環境変数で設定を上書きする。
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	c.Port = getEnvOr(lookup, "PORT", c.Port)
	c.DBPath = getEnvOr(lookup, "DB_PATH", c.DBPath)
	c.BasePath = getEnvOr(lookup, "BASE_PATH", c.BasePath)
	c.JWTSecret = getEnvOr(lookup, "JWT_SECRET", c.JWTSecret)
	c.SlowSubscriberPolicy = getEnvOr(lookup, "SLOW_SUBSCRIBER_POLICY", c.SlowSubscriberPolicy)

	if v, ok := lookup("FRONTEND_URL"); ok && v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("SSE_KEEPALIVE"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SSE_KEEPALIVEの解析に失敗: %w", err)
		}
		c.SSEKeepalive = d
	}
	if v, ok := lookup("SUBSCRIBER_BUFFER"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SUBSCRIBER_BUFFERの解析に失敗: %w", err)
		}
		c.SubscriberBuffer = n
	}
	return nil
}

// Validate は設定値の整合性を検証する。
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("portが空です"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_pathが空です"))
	}
	if c.SSEKeepalive <= 0 {
		errs = append(errs, fmt.Errorf("sse_keepaliveは正の値である必要があります: %s", c.SSEKeepalive))
	}
	if c.SubscriberBuffer <= 0 {
		errs = append(errs, fmt.Errorf("subscriber_bufferは正の値である必要があります: %d", c.SubscriberBuffer))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeoutは正の値である必要があります: %s", c.ShutdownTimeout))
	}
	if _, err := event.ParsePolicy(c.SlowSubscriberPolicy); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("設定が不正です: %w", err)
	}
	return nil
}

// Policy は詰まった購読者への扱いを返す。Validate済みであること。
func (c Config) Policy() event.Policy {
	p, _ := event.ParsePolicy(c.SlowSubscriberPolicy)
	return p
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(lookup func(string) (string, bool), key, defaultValue string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return defaultValue
}

// splitList はカンマ区切りの文字列を空要素を除いたスライスにする。
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// normalizeBasePath はベースパスを "/xxx" の形にそろえる。"/" と空はルートを表す。
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
