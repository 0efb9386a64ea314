package domain

// UploadedAsset は転送に成功した添付ファイルを表します
type UploadedAsset struct {
	// Filename は元のファイル名
	Filename string

	// URL は転送先で参照可能なURL（Markdownに埋め込める形式）
	URL string

	// Mimetype は転送したファイルのMIMEタイプ
	Mimetype string
}

// UploadError は転送に失敗した添付ファイルを表します。
// 1ファイルの失敗がバッチ全体を中断させないよう、例外ではなく値として扱います
type UploadError struct {
	// Filename は元のファイル名
	Filename string

	// Reason は利用者向けの失敗理由（Issueコメントにそのまま表示されます）
	Reason string
}

// TransferResult は1ファイルの転送結果です。AssetかErrorのどちらか一方だけが設定されます
type TransferResult struct {
	Asset *UploadedAsset
	Error *UploadError
}
