package slack

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/mirai888/send-slack-message-to-issue/project/domain"
)

// modalCallbackID はIssue選択モーダルの callback_id です
const modalCallbackID = "send_to_issue_modal"

// Client は service.SlackPort の Slack SDK 実装です
type Client struct {
	cli        *slack.Client
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient は Slack クライアントを初期化します
// downloadTimeout はファイルダウンロード1回あたりのタイムアウトです
func NewClient(botToken string, downloadTimeout time.Duration, logger zerolog.Logger) *Client {
	httpClient := &http.Client{Timeout: downloadTimeout}
	return &Client{
		cli:        slack.New(botToken, slack.OptionHTTPClient(httpClient)),
		token:      botToken,
		httpClient: httpClient,
		logger:     logger,
	}
}

// OpenIssueModal は trigger_id を使ってIssue選択モーダルを開きます
// モーダルには外部検索（external_select）のIssueピッカー1つだけを置き、
// privateMetadata は view_submission まで改変されずに往復します
func (sc *Client) OpenIssueModal(ctx context.Context, triggerID, privateMetadata string) error {
	picker := slack.NewOptionsSelectBlockElement(
		slack.OptTypeExternal,
		slack.NewTextBlockObject("plain_text", "Search issues by title or number", false, false),
		"issue_select",
	)
	// 入力なしでも最近のIssueを提示できるようにする
	minQueryLength := 0
	picker.MinQueryLength = &minQueryLength

	modal := slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      modalCallbackID,
		Title:           slack.NewTextBlockObject("plain_text", "Send to GitHub Issue", false, false),
		Submit:          slack.NewTextBlockObject("plain_text", "Send", false, false),
		Close:           slack.NewTextBlockObject("plain_text", "Cancel", false, false),
		PrivateMetadata: privateMetadata,
		Blocks: slack.Blocks{
			BlockSet: []slack.Block{
				slack.NewInputBlock(
					"issue",
					slack.NewTextBlockObject("plain_text", "Issue", false, false),
					slack.NewTextBlockObject("plain_text", "The message will be posted as a comment", false, false),
					picker,
				),
			},
		},
	}

	if _, err := sc.cli.OpenViewContext(ctx, triggerID, modal); err != nil {
		return fmt.Errorf("slack: モーダル表示失敗 (trigger=%s): %w", triggerID, err)
	}
	return nil
}

// ResolveFile は files.info でファイル情報を補完します
func (sc *Client) ResolveFile(ctx context.Context, fileID string) (*domain.FileRef, error) {
	file, _, _, err := sc.cli.GetFileInfoContext(ctx, fileID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("slack: ファイル情報取得失敗 (id=%s): %w", fileID, err)
	}

	downloadURL := file.URLPrivateDownload
	if downloadURL == "" {
		downloadURL = file.URLPrivate
	}

	return &domain.FileRef{
		ID:          file.ID,
		Name:        file.Name,
		Mimetype:    file.Mimetype,
		DownloadURL: downloadURL,
		Size:        int64(file.Size),
	}, nil
}

// DownloadFile は url_private_download からファイルの中身を取得します。
// SlackのダウンロードURLは一度リダイレクトすることが多いため追従します。
// 認証・スコープ不足時はファイルの代わりにHTMLのログインページが返るので、
// その場合はゴミをアップロードせず失敗として報告します
func (sc *Client) DownloadFile(ctx context.Context, downloadURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("slack: ダウンロードリクエスト作成失敗: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+sc.token)

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack: ダウンロード失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("slack: ダウンロード失敗 (status=%d)", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, domain.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("slack: レスポンス読み込み失敗: %w", err)
	}

	if looksLikeHTML(resp.Header.Get("Content-Type"), data) {
		sc.logger.Warn().Str("url", downloadURL).Msg("download returned HTML instead of file content")
		return nil, fmt.Errorf("received HTML instead of file content (check bot token files:read scope)")
	}

	return data, nil
}

// looksLikeHTML はレスポンスがファイル本体ではなくHTMLページかを判定します
func looksLikeHTML(contentType string, data []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(string(data[:min(len(data), 64)])))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}
