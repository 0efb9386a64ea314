package domain

import (
	"path"
	"strings"
)

// MaxFileSize は転送するファイルの上限サイズ（10MiB）です。
// 宣言サイズによる事前チェックとダウンロード後の実サイズチェックの両方に使われます
const MaxFileSize = 10 << 20

// FileRef はSlack上のファイルへの参照を表します。
// message_action 時点ではIDのみの不完全な状態で届くことがあり、
// その場合は files.info による補完（Resolve）が必要です
type FileRef struct {
	// ID はSlackのファイルID
	ID string `json:"id"`

	// Name は表示用ファイル名
	Name string `json:"name,omitempty"`

	// Mimetype はSlackが申告するMIMEタイプ
	Mimetype string `json:"mimetype,omitempty"`

	// DownloadURL は認証付きダウンロードURL（url_private_download）
	DownloadURL string `json:"url,omitempty"`

	// Size はSlackが申告するバイト数。0は未申告を表します
	Size int64 `json:"size,omitempty"`
}

// NeedsResolve はダウンロードに必要な情報が欠けているかを判定します
func (f FileRef) NeedsResolve() bool {
	return f.DownloadURL == "" || f.Mimetype == ""
}

// IsAllowedType は転送を許可するファイル種別かを判定します。
// 許可リスト方式: 画像・PDF・スプレッドシート（xlsx/xls/旧Excel MIME）と
// 拡張子フォールバックによるCSVのみを許可します
func IsAllowedType(mimetype, filename string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimetype))

	switch {
	case strings.HasPrefix(mt, "image/"):
		return true
	case mt == "application/pdf":
		return true
	case mt == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		mt == "application/vnd.ms-excel",
		mt == "application/msexcel",
		mt == "application/x-msexcel",
		mt == "application/excel":
		return true
	}

	// CSVはSlackが text/csv や text/plain で申告することがあるため拡張子で判定
	if strings.EqualFold(path.Ext(filename), ".csv") {
		return true
	}

	return false
}

// IsImageType はインライン画像として表示できるMIMEタイプかを判定します
func IsImageType(mimetype string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimetype)), "image/")
}

// IsSpreadsheetType はスプレッドシート系のファイルかを判定します（アイコン選択用）
func IsSpreadsheetType(mimetype, filename string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimetype))
	switch mt {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel",
		"application/msexcel",
		"application/x-msexcel",
		"application/excel",
		"text/csv":
		return true
	}
	ext := strings.ToLower(path.Ext(filename))
	return ext == ".xlsx" || ext == ".xls" || ext == ".csv"
}
