package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mirai888/send-slack-message-to-issue/project/domain"
	"github.com/mirai888/send-slack-message-to-issue/project/infrastructure/secret"
)

// Config は環境変数から読み込まれるアプリケーション設定を表します
type Config struct {
	// 基本設定
	Port string

	// Slack API設定
	SlackSigningSecret string // Secret Manager または環境変数から読み込み
	SlackBotToken      string // Secret Manager または環境変数から読み込み

	// GitHub設定
	GitHubToken string // Secret Manager または環境変数から読み込み
	GitHubOwner string
	GitHubRepo  string

	// 添付ファイル保存先設定（未指定時はコメント先リポジトリと同じ）
	AssetsOwner  string
	AssetsRepo   string
	AssetsBranch string

	// 転送設定
	DownloadTimeout time.Duration
	UploadTimeout   time.Duration
}

// NewConfig は環境変数から設定を読み込み、Config構造体を返します
// GCP_PROJECT が設定されている場合、センシティブな情報（署名シークレットや
// 各種トークン）は Secret Manager から取得し、未登録のものだけ環境変数に
// フォールバックします
func NewConfig(ctx context.Context) (*Config, error) {
	cfg := &Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		GitHubOwner:     mustGetEnv("GITHUB_OWNER"),
		GitHubRepo:      mustGetEnv("GITHUB_REPO"),
		AssetsOwner:     os.Getenv("ASSETS_OWNER"),
		AssetsRepo:      os.Getenv("ASSETS_REPO"),
		AssetsBranch:    getEnvOrDefault("ASSETS_BRANCH", "main"),
		DownloadTimeout: 60 * time.Second,
		UploadTimeout:   60 * time.Second,
	}

	// 保存先リポジトリ未指定時はコメント先リポジトリに格納
	if cfg.AssetsOwner == "" {
		cfg.AssetsOwner = cfg.GitHubOwner
	}
	if cfg.AssetsRepo == "" {
		cfg.AssetsRepo = cfg.GitHubRepo
	}

	// センシティブな値の解決
	gcpProject := os.Getenv("GCP_PROJECT")
	if gcpProject != "" {
		secretMgr, err := secret.NewManager(ctx, gcpProject)
		if err != nil {
			return nil, fmt.Errorf("NewConfig: Secret Manager 初期化失敗: %w", err)
		}
		defer secretMgr.Close()

		if cfg.SlackSigningSecret, err = resolveSecret(ctx, secretMgr, "slack-signing-secret", "SLACK_SIGNING_SECRET"); err != nil {
			return nil, err
		}
		if cfg.SlackBotToken, err = resolveSecret(ctx, secretMgr, "slack-bot-token", "SLACK_BOT_TOKEN"); err != nil {
			return nil, err
		}
		if cfg.GitHubToken, err = resolveSecret(ctx, secretMgr, "github-token", "GITHUB_TOKEN"); err != nil {
			return nil, err
		}
	} else {
		cfg.SlackSigningSecret = mustGetEnv("SLACK_SIGNING_SECRET")
		cfg.SlackBotToken = mustGetEnv("SLACK_BOT_TOKEN")
		cfg.GitHubToken = mustGetEnv("GITHUB_TOKEN")
	}

	return cfg, nil
}

// resolveSecret は Secret Manager から取得し、未登録なら環境変数にフォールバックします
func resolveSecret(ctx context.Context, mgr *secret.Manager, secretName, envKey string) (string, error) {
	value, err := mgr.GetSecret(ctx, secretName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if envValue := os.Getenv(envKey); envValue != "" {
				return envValue, nil
			}
			return "", fmt.Errorf("resolveSecret: %s がSecret Managerにも環境変数 %s にもありません", secretName, envKey)
		}
		return "", fmt.Errorf("resolveSecret: %s 取得失敗: %w", secretName, err)
	}
	return value, nil
}

// getEnvOrDefault は環境変数を取得し、未設定の場合はデフォルト値を返します
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// mustGetEnv は環境変数を取得し、存在しない場合はパニックします
func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("required environment variable not set: %s", key))
	}
	return value
}
