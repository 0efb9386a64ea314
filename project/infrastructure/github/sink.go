package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContentsSink は service.AssetSink のリポジトリコミット実装です。
// 添付ファイルを保存用リポジトリに Contents API でコミットし、
// raw.githubusercontent.com のURLを返します
type ContentsSink struct {
	api     *github.Client
	owner   string
	repo    string
	branch  string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewContentsSink は ContentsSink を初期化します
func NewContentsSink(api *github.Client, owner, repo, branch string, timeout time.Duration, logger zerolog.Logger) *ContentsSink {
	return &ContentsSink{
		api:     api,
		owner:   owner,
		repo:    repo,
		branch:  branch,
		timeout: timeout,
		logger:  logger,
	}
}

// Store はファイルをリポジトリにコミットし、参照URLを返します。
// パスは {issue番号}/{unix秒}_{ランダム8文字}_{ファイル名} の形式で、
// 同名ファイルの再転送でも衝突しません
func (s *ContentsSink) Store(ctx context.Context, data []byte, filename, mimetype string, issueNumber int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	assetPath := fmt.Sprintf("%d/%d_%s_%s",
		issueNumber,
		time.Now().Unix(),
		uuid.NewString()[:8],
		sanitizeFilename(filename),
	)

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(fmt.Sprintf("Add attachment %s for issue #%d", filename, issueNumber)),
		Content: data,
		Branch:  github.String(s.branch),
	}

	resp, _, err := s.api.Repositories.CreateFile(ctx, s.owner, s.repo, assetPath, opts)
	if err != nil {
		return "", fmt.Errorf("github: ファイルコミット失敗 (path=%s): %w", assetPath, err)
	}

	s.logger.Info().
		Str("path", assetPath).
		Str("commit", resp.Commit.GetSHA()).
		Msg("attachment committed")

	return s.rawURL(assetPath), nil
}

// rawURL はコミット済みファイルの raw.githubusercontent.com URLを返します
func (s *ContentsSink) rawURL(assetPath string) string {
	segments := strings.Split(assetPath, "/")
	escaped := make([]string, 0, len(segments))
	for _, seg := range segments {
		escaped = append(escaped, url.PathEscape(seg))
	}
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s",
		s.owner, s.repo, s.branch, strings.Join(escaped, "/"))
}

// sanitizeFilename はパスとして安全な形にファイル名を整えます
func sanitizeFilename(name string) string {
	if name == "" {
		return "attachment"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	sanitized := strings.Trim(b.String(), "._")
	if sanitized == "" {
		return "attachment"
	}
	return sanitized
}
