package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v62/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/mirai888/send-slack-message-to-issue/project/service"
)

// maxIssueOptions はモーダルのIssueピッカーに返す選択肢の上限です
const maxIssueOptions = 20

// NewGitHubAPI はトークン認証付きの GitHub API クライアントを作成します
func NewGitHubAPI(ctx context.Context, token string) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

// Client は service.GitHubPort の GitHub SDK 実装です
type Client struct {
	api    *github.Client
	owner  string
	repo   string
	logger zerolog.Logger
}

// NewClient は GitHub クライアントを初期化します
func NewClient(api *github.Client, owner, repo string, logger zerolog.Logger) *Client {
	return &Client{
		api:    api,
		owner:  owner,
		repo:   repo,
		logger: logger,
	}
}

// CreateIssueComment は指定されたIssueにコメントを投稿します
func (c *Client) CreateIssueComment(ctx context.Context, issueNumber int, body string) error {
	comment := &github.IssueComment{Body: github.String(body)}
	created, _, err := c.api.Issues.CreateComment(ctx, c.owner, c.repo, issueNumber, comment)
	if err != nil {
		return fmt.Errorf("github: コメント投稿失敗 (issue=%d): %w", issueNumber, err)
	}

	c.logger.Info().
		Int("issue", issueNumber).
		Int64("comment_id", created.GetID()).
		Msg("issue comment created")
	return nil
}

// SearchIssues は利用者の入力からIssueを検索します。
// 数字のみの入力はIssue番号として、それ以外はタイトル検索として扱い、
// 空入力では直近の更新順にオープンIssueを返します
func (c *Client) SearchIssues(ctx context.Context, query string) ([]service.IssueSummary, error) {
	q := strings.TrimSpace(query)

	var searchQuery string
	switch {
	case q == "":
		searchQuery = fmt.Sprintf("repo:%s/%s is:issue is:open", c.owner, c.repo)
	case isAllDigits(q):
		searchQuery = fmt.Sprintf("repo:%s/%s is:issue number:%s", c.owner, c.repo, q)
	default:
		searchQuery = fmt.Sprintf("repo:%s/%s is:issue in:title %s", c.owner, c.repo, q)
	}

	opts := &github.SearchOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: maxIssueOptions},
	}

	result, _, err := c.api.Search.Issues(ctx, searchQuery, opts)
	if err != nil {
		return nil, fmt.Errorf("github: Issue検索失敗 (query=%q): %w", q, err)
	}

	summaries := make([]service.IssueSummary, 0, len(result.Issues))
	for _, issue := range result.Issues {
		summaries = append(summaries, service.IssueSummary{
			Number: issue.GetNumber(),
			Title:  issue.GetTitle(),
		})
		if len(summaries) >= maxIssueOptions {
			break
		}
	}
	return summaries, nil
}

// isAllDigits は文字列が数字のみで構成されているかを判定します
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
