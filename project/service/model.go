package service

import "github.com/mirai888/send-slack-message-to-issue/project/domain"

// ActionEvent は message_action の受信内容を表します
type ActionEvent struct {
	// TriggerID はモーダルを開くための単回使用トークン（数秒で失効）
	TriggerID string

	// Text は対象メッセージの本文
	Text string

	// Files は対象メッセージの添付ファイル参照一覧
	Files []domain.FileRef

	// UserName は対象メッセージを送ったユーザー名
	UserName string

	// ChannelID はメッセージが投稿されたチャンネルのID
	ChannelID string

	// ChannelName はメッセージが投稿されたチャンネル名
	ChannelName string

	// MessageTS は対象メッセージのタイムスタンプ
	MessageTS string

	// TeamID はSlackワークスペースのID
	TeamID string

	// TeamDomain はSlackワークスペースのドメイン
	TeamDomain string
}

// SubmissionEvent は view_submission の受信内容を表します
type SubmissionEvent struct {
	// IssueValue は選択されたIssue番号（文字列のまま）
	IssueValue string

	// RawMetadata はモーダルから戻ってきた private_metadata
	RawMetadata string
}

// IssueSummary はIssue検索結果の1件を表します（モーダルの選択肢用）
type IssueSummary struct {
	Number int
	Title  string
}
