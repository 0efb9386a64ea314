package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/mirai888/send-slack-message-to-issue/project/domain"
)

// RelayService はSlackメッセージをGitHub Issueコメントへ転送するサービスです。
// 2種類の受信リクエスト（message_action / view_submission）で駆動される
// ステートレスな状態機械であり、リクエスト間の相関はすべてモーダルの
// private_metadata に載せて外部UIを往復させます
type RelayService interface {
	// OnMessageAction はメッセージアクション受信時に呼ばれ、
	// メタデータを構築してIssue選択モーダルを開きます
	OnMessageAction(ctx context.Context, ev *ActionEvent) error

	// OnViewSubmission はモーダル送信時に呼ばれ、添付ファイルを転送し、
	// コメントを組み立てて対象Issueへ投稿します。
	// 返すエラーはモーダル内のインラインエラーとして利用者に表示されます
	OnViewSubmission(ctx context.Context, ev *SubmissionEvent) error
}

// relayService は RelayService の実装です
type relayService struct {
	sp     SlackPort
	gp     GitHubPort
	sink   AssetSink
	logger zerolog.Logger
}

// NewRelayService は RelayService のインスタンスを作成します
func NewRelayService(sp SlackPort, gp GitHubPort, sink AssetSink, logger zerolog.Logger) RelayService {
	return &relayService{
		sp:     sp,
		gp:     gp,
		sink:   sink,
		logger: logger,
	}
}

// OnMessageAction は対象メッセージからメタデータを構築し、モーダルを開きます
func (rs *relayService) OnMessageAction(ctx context.Context, ev *ActionEvent) error {
	meta := domain.ModalMetadata{
		Text:       ev.Text,
		User:       ev.UserName,
		Channel:    ev.ChannelName,
		ChannelID:  ev.ChannelID,
		MessageTS:  ev.MessageTS,
		TeamID:     ev.TeamID,
		TeamDomain: ev.TeamDomain,
		Files:      ev.Files,
	}

	if err := meta.Validate(); err != nil {
		return fmt.Errorf("OnMessageAction: メタデータ検証失敗: %w", err)
	}

	// private_metadata の上限に収まるよう縮退させつつ直列化
	encoded, err := meta.EncodeWithLimit(domain.PrivateMetadataLimit)
	if err != nil {
		return fmt.Errorf("OnMessageAction: メタデータ直列化失敗: %w", err)
	}

	// trigger_id は数秒で失効する単回使用トークンなのでリトライしない。
	// 失敗してもSlack側でモーダルが開かないだけであり、ログに残して終わります
	if err := rs.sp.OpenIssueModal(ctx, ev.TriggerID, encoded); err != nil {
		return fmt.Errorf("OnMessageAction: モーダル表示失敗: %w", err)
	}

	rs.logger.Info().
		Str("channel", ev.ChannelName).
		Str("user", ev.UserName).
		Int("files", len(ev.Files)).
		Msg("issue picker modal opened")

	return nil
}

// OnViewSubmission はメタデータを復元し、転送・コメント組み立て・投稿を
// 同期的に実行します。ファイル単位の失敗はコメントの失敗セクションに
// 折り込み、送信全体は失敗させません
func (rs *relayService) OnViewSubmission(ctx context.Context, ev *SubmissionEvent) error {
	issueNumber, err := strconv.Atoi(ev.IssueValue)
	if err != nil {
		return fmt.Errorf("OnViewSubmission: Issue番号が不正です (value=%q): %w", ev.IssueValue, err)
	}

	meta, err := domain.DecodeMetadata(ev.RawMetadata)
	if err != nil {
		return fmt.Errorf("OnViewSubmission: メタデータ復元失敗: %w", err)
	}

	succeeded, failed := rs.transferAll(ctx, meta.Files, issueNumber)
	for _, e := range failed {
		rs.logger.Warn().
			Int("issue", issueNumber).
			Str("file", e.Filename).
			Str("reason", e.Reason).
			Msg("attachment transfer failed")
	}

	body := ComposeComment(meta, succeeded, failed)

	if err := rs.gp.CreateIssueComment(ctx, issueNumber, body); err != nil {
		return fmt.Errorf("OnViewSubmission: コメント投稿失敗 (issue=%d): %w", issueNumber, err)
	}

	rs.logger.Info().
		Int("issue", issueNumber).
		Int("uploaded", len(succeeded)).
		Int("failed", len(failed)).
		Msg("comment posted")

	return nil
}
