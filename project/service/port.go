package service

import (
	"context"

	"github.com/mirai888/send-slack-message-to-issue/project/domain"
)

// SlackPort は Slack API 呼び出しのポートです
type SlackPort interface {
	// OpenIssueModal は trigger_id を使ってIssue選択モーダルを開きます
	// privateMetadata はモーダルの private_metadata にそのまま格納され、
	// view_submission で改変されずに戻ってきます
	OpenIssueModal(ctx context.Context, triggerID, privateMetadata string) error

	// ResolveFile はファイルIDから files.info を呼び、
	// ダウンロードURLやMIMEタイプなど欠けている情報を補完したFileRefを返します
	ResolveFile(ctx context.Context, fileID string) (*domain.FileRef, error)

	// DownloadFile は認証付きURLからファイルの中身を取得します
	// リダイレクトを許容し、HTMLが返ってきた場合はエラーを返します
	// （HTMLは認証・スコープ不足の典型的な兆候であり、ファイル本体ではありません）
	DownloadFile(ctx context.Context, downloadURL string) ([]byte, error)
}

// GitHubPort は GitHub API 呼び出しのポートです
type GitHubPort interface {
	// CreateIssueComment は指定されたIssueにMarkdownコメントを投稿します
	CreateIssueComment(ctx context.Context, issueNumber int, body string) error

	// SearchIssues は利用者の入力文字列でIssueを検索します
	// 数字のみの入力はIssue番号として、それ以外はタイトル検索として扱います
	SearchIssues(ctx context.Context, query string) ([]IssueSummary, error)
}

// AssetSink はダウンロード済みバイト列を永続化し、参照可能なURLを返す
// 保存先戦略のポートです。保存先（リポジトリコミット・オブジェクトストレージ等）は
// 起動時の配線で1つだけ選択されます
type AssetSink interface {
	// Store はファイルを保存し、Markdownに埋め込めるURLを返します
	Store(ctx context.Context, data []byte, filename, mimetype string, issueNumber int) (string, error)
}
