package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PrivateMetadataLimit はSlackモーダルの private_metadata に格納できる最大文字数です
const PrivateMetadataLimit = 3000

// ModalMetadata はモーダルの open から submit まで外部UIを往復する不透明な状態です。
// message_action 受信時に作成され、view_submission 受信時にそのまま戻ってきます。
// このプロセスはリクエストをまたいで状態を一切保持しないため、
// 2段階のやり取りの相関はすべてこのメタデータに載せます
type ModalMetadata struct {
	// Text は元メッセージの本文
	Text string `json:"text"`

	// User は投稿者のSlackユーザー名
	User string `json:"user"`

	// Channel は投稿チャンネル名
	Channel string `json:"channel"`

	// ChannelID は投稿チャンネルのID（元メッセージへのリンク生成用）
	ChannelID string `json:"channel_id,omitempty"`

	// MessageTS は元メッセージのタイムスタンプ
	MessageTS string `json:"message_ts,omitempty"`

	// TeamID はSlackワークスペースのID
	TeamID string `json:"team_id,omitempty"`

	// TeamDomain はSlackワークスペースのドメイン（~.slack.com のリンク生成用）
	TeamDomain string `json:"team_domain,omitempty"`

	// Files は元メッセージに添付されていたファイルの参照一覧
	Files []FileRef `json:"files,omitempty"`
}

// Validate はModalMetadataの必須項目を検証します
func (m ModalMetadata) Validate() error {
	if strings.TrimSpace(m.User) == "" {
		return fmt.Errorf("%w: Userは必須項目です", ErrInvalid)
	}
	if strings.TrimSpace(m.Channel) == "" {
		return fmt.Errorf("%w: Channelは必須項目です", ErrInvalid)
	}
	return nil
}

// EncodeWithLimit はメタデータをJSONに直列化し、limit 文字以内に収めます。
// 超過する場合はFileRefを段階的に縮退させます:
//  1. 各ファイルからダウンロードURL・MIMEタイプ・サイズを落とす
//  2. 各ファイルをID・名前のみにする
//  3. ファイル一覧を完全に落とす
//  4. それでも超過する場合は本文を収まるまで切り詰める（最終手段）
// Text・User・Channel の各フィールド自体が失われることはありません。
// 縮退の各段階は新しいFileRefスライスを生成し、元のメタデータは変更しません
func (m ModalMetadata) EncodeWithLimit(limit int) (string, error) {
	encoded, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("EncodeWithLimit: メタデータ直列化失敗: %w", err)
	}
	if len(encoded) <= limit {
		return string(encoded), nil
	}

	// 段階1: URL・MIMEタイプ・サイズを落とす（ID・名前は残す）
	degraded := m
	degraded.Files = projectFiles(m.Files, func(f FileRef) FileRef {
		return FileRef{ID: f.ID, Name: f.Name}
	})
	if encoded, err = json.Marshal(degraded); err == nil && len(encoded) <= limit {
		return string(encoded), nil
	}

	// 段階2はIDと名前のみの形と同一のため、段階3: ファイル一覧を完全に落とす
	degraded.Files = nil
	if encoded, err = json.Marshal(degraded); err == nil && len(encoded) <= limit {
		return string(encoded), nil
	}

	// 段階4: 本文を切り詰める。JSONエスケープでの膨張があるため
	// 収まるまでルーン単位で半分ずつ縮める
	text := []rune(degraded.Text)
	for len(text) > 0 {
		text = text[:len(text)/2]
		degraded.Text = string(text)
		if encoded, err = json.Marshal(degraded); err == nil && len(encoded) <= limit {
			return string(encoded), nil
		}
	}

	degraded.Text = ""
	encoded, err = json.Marshal(degraded)
	if err != nil {
		return "", fmt.Errorf("EncodeWithLimit: メタデータ直列化失敗: %w", err)
	}
	if len(encoded) > limit {
		return "", fmt.Errorf("%w: メタデータが上限%d文字に収まりません", ErrInvalid, limit)
	}
	return string(encoded), nil
}

// DecodeMetadata は view_submission で戻ってきた private_metadata を復元します
func DecodeMetadata(raw string) (*ModalMetadata, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: private_metadataが空です", ErrInvalid)
	}

	var m ModalMetadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("DecodeMetadata: メタデータ復元失敗: %w", err)
	}
	return &m, nil
}

// projectFiles は各FileRefに変換を適用した新しいスライスを返します
func projectFiles(files []FileRef, project func(FileRef) FileRef) []FileRef {
	if len(files) == 0 {
		return nil
	}
	result := make([]FileRef, 0, len(files))
	for _, f := range files {
		result = append(result, project(f))
	}
	return result
}
