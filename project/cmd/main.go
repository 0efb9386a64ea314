package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mirai888/send-slack-message-to-issue/project/handler"
	"github.com/mirai888/send-slack-message-to-issue/project/infrastructure/config"
	githubinfra "github.com/mirai888/send-slack-message-to-issue/project/infrastructure/github"
	slackinfra "github.com/mirai888/send-slack-message-to-issue/project/infrastructure/slack"
	"github.com/mirai888/send-slack-message-to-issue/project/service"
)

func main() {
	ctx := context.Background()
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// 1. 設定を読み込む
	cfg, err := config.NewConfig(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("設定読み込み失敗")
	}

	// 2. 依存関係を初期化
	// Slack API ポート実装
	slackClient := slackinfra.NewClient(cfg.SlackBotToken, cfg.DownloadTimeout, logger)

	// GitHub API クライアント（コメント投稿・検索と添付ファイル保存で共有）
	githubAPI := githubinfra.NewGitHubAPI(ctx, cfg.GitHubToken)
	githubClient := githubinfra.NewClient(githubAPI, cfg.GitHubOwner, cfg.GitHubRepo, logger)

	// 添付ファイル保存先（リポジトリコミット戦略）
	sink := githubinfra.NewContentsSink(githubAPI, cfg.AssetsOwner, cfg.AssetsRepo, cfg.AssetsBranch, cfg.UploadTimeout, logger)

	// 3. サービス層を初期化
	relayService := service.NewRelayService(slackClient, githubClient, sink, logger)

	// 4. HTTP ハンドラーを設定
	mux := http.NewServeMux()

	// Slack インタラクション受信（message_action / view_submission）
	mux.Handle("/slack/interactions", handler.NewInteractionsHandler(cfg.SlackSigningSecret, relayService, logger))

	// モーダルのIssueピッカー用の選択肢検索
	mux.Handle("/slack/options", handler.NewOptionsHandler(cfg.SlackSigningSecret, githubClient, logger))

	// ヘルスチェック
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// 5. サーバー起動（SIGTERMで添付転送中のリクエストを待ってから停止）
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("サーバー起動失敗")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("シャットダウン失敗")
	}
	logger.Info().Msg("server stopped")
}
