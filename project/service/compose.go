package service

import (
	"fmt"
	"strings"

	"github.com/mirai888/send-slack-message-to-issue/project/domain"
)

// ComposeComment はIssueに投稿するMarkdownコメントを組み立てる純粋関数です。
// 同じ入力に対して常にバイト単位で同一の出力を返します。
//   - 元メッセージ本文は行ごとに "> " で引用（空の場合はプレースホルダ行）
//   - 画像はインライン表示、それ以外はアイコン付きリンク
//   - 転送失敗したファイルは専用セクションに理由つきで列挙（失敗ゼロなら省略）
//   - リンク生成に足る情報があれば元メッセージへのリンクを末尾に付与
func ComposeComment(meta *domain.ModalMetadata, succeeded []domain.UploadedAsset, failed []domain.UploadError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Message from @%s in #%s**\n\n", meta.User, meta.Channel)

	b.WriteString(quoteText(meta.Text))
	b.WriteString("\n")

	if len(succeeded) > 0 {
		b.WriteString("\n**Attachments:**\n\n")
		for _, asset := range succeeded {
			b.WriteString(renderAsset(asset))
			b.WriteString("\n")
		}
	}

	if len(failed) > 0 {
		b.WriteString("\n**Could not upload:**\n\n")
		for _, e := range failed {
			fmt.Fprintf(&b, "- %s: %s\n", e.Filename, e.Reason)
		}
	}

	if link := messageLink(meta); link != "" {
		fmt.Fprintf(&b, "\n[View original message in Slack](%s)\n", link)
	}

	return b.String()
}

// quoteText は本文を行ごとに "> " で引用します
func quoteText(text string) string {
	if strings.TrimSpace(text) == "" {
		return "> _(no content)_\n"
	}

	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		b.WriteString("> ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// renderAsset は転送済みファイル1件のMarkdown表現を返します
func renderAsset(asset domain.UploadedAsset) string {
	if domain.IsImageType(asset.Mimetype) {
		return fmt.Sprintf("![%s](%s)", asset.Filename, asset.URL)
	}
	return fmt.Sprintf("%s [%s](%s)", assetIcon(asset), asset.Filename, asset.URL)
}

// assetIcon はファイル種別に応じたアイコンを返します
func assetIcon(asset domain.UploadedAsset) string {
	mt := strings.ToLower(asset.Mimetype)
	switch {
	case mt == "application/pdf":
		return "📄"
	case domain.IsSpreadsheetType(asset.Mimetype, asset.Filename):
		return "📊"
	default:
		return "📎"
	}
}

// messageLink は元メッセージへのリンクを生成します。
// チャンネルIDとメッセージTSに加え、チームドメインまたはチームIDが
// 揃っている場合のみ生成し、ドメイン形式を優先します
func messageLink(meta *domain.ModalMetadata) string {
	if meta.ChannelID == "" || meta.MessageTS == "" {
		return ""
	}

	if meta.TeamDomain != "" {
		// パーマリンク形式: https://{domain}.slack.com/archives/{channel}/p{ts}
		// ts はドットを除いた数字列になります
		ts := strings.ReplaceAll(meta.MessageTS, ".", "")
		return fmt.Sprintf("https://%s.slack.com/archives/%s/p%s", meta.TeamDomain, meta.ChannelID, ts)
	}

	if meta.TeamID != "" {
		return fmt.Sprintf("https://app.slack.com/client/%s/%s", meta.TeamID, meta.ChannelID)
	}

	return ""
}
