package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mirai888/send-slack-message-to-issue/project/domain"
)

// maxConcurrentTransfers は同時に実行するファイル転送の上限です
// （転送元・転送先のレート制限を尊重するための値）
const maxConcurrentTransfers = 4

// transferAll はメタデータ内の全ファイルを転送し、成功と失敗を分けて返します。
// 各ファイルは独立しており、1件の失敗・遅延が他の転送を中断させることはありません。
// 返却順は入力順を保持します
func (rs *relayService) transferAll(ctx context.Context, files []domain.FileRef, issueNumber int) ([]domain.UploadedAsset, []domain.UploadError) {
	if len(files) == 0 {
		return nil, nil
	}

	results := make([]domain.TransferResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentTransfers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			results[i] = rs.transferFile(gctx, f, issueNumber)
			return nil
		})
	}
	// transferFile はエラーを返さないため Wait のエラーは発生しません
	_ = g.Wait()

	var succeeded []domain.UploadedAsset
	var failed []domain.UploadError
	for _, r := range results {
		switch {
		case r.Asset != nil:
			succeeded = append(succeeded, *r.Asset)
		case r.Error != nil:
			failed = append(failed, *r.Error)
		}
	}
	return succeeded, failed
}

// transferFile は1ファイルをSlackからGitHubへ転送します。
// 各ステップの失敗はUploadErrorとして値で返し、想定外のpanicも
// この境界で回収してUploadErrorに変換します
func (rs *relayService) transferFile(ctx context.Context, f domain.FileRef, issueNumber int) (result domain.TransferResult) {
	defer func() {
		if r := recover(); r != nil {
			rs.logger.Error().Str("file", f.Name).Interface("panic", r).Msg("transfer panic recovered")
			result = failure(f.Name, fmt.Sprintf("unexpected error: %v", r))
		}
	}()

	// 1. 欠けている情報をfiles.infoで補完
	if f.NeedsResolve() {
		resolved, err := rs.sp.ResolveFile(ctx, f.ID)
		if err != nil {
			return failure(f.Name, fmt.Sprintf("metadata lookup failed: %v", err))
		}
		// 名前は表示用に元の値を優先
		if f.Name == "" {
			f.Name = resolved.Name
		}
		f.Mimetype = resolved.Mimetype
		f.DownloadURL = resolved.DownloadURL
		if resolved.Size > 0 {
			f.Size = resolved.Size
		}
	}

	// 2. 許可リストによる種別ゲート（ダウンロード前）
	if !domain.IsAllowedType(f.Mimetype, f.Name) {
		return failure(f.Name, fmt.Sprintf("Unsupported file type: %s", f.Mimetype))
	}

	// 3. 申告サイズによる事前チェック（ダウンロード回避）
	if f.Size > domain.MaxFileSize {
		return failure(f.Name, "exceeds 10MB limit")
	}

	if f.DownloadURL == "" {
		return failure(f.Name, "metadata lookup failed: no download URL available")
	}

	// 4. 認証付きダウンロード
	data, err := rs.sp.DownloadFile(ctx, f.DownloadURL)
	if err != nil {
		return failure(f.Name, fmt.Sprintf("download failed: %v", err))
	}

	// 5. 実サイズによる再チェック（申告サイズは欠落・誤りの可能性がある）
	if int64(len(data)) > domain.MaxFileSize {
		return failure(f.Name, "exceeds 10MB limit")
	}

	// 6. 転送先への保存
	url, err := rs.sink.Store(ctx, data, f.Name, f.Mimetype, issueNumber)
	if err != nil {
		return failure(f.Name, fmt.Sprintf("upload failed: %v", err))
	}

	// 7. 成功
	return domain.TransferResult{Asset: &domain.UploadedAsset{
		Filename: f.Name,
		URL:      url,
		Mimetype: f.Mimetype,
	}}
}

// failure はUploadErrorを持つTransferResultを作ります
func failure(filename, reason string) domain.TransferResult {
	return domain.TransferResult{Error: &domain.UploadError{
		Filename: filename,
		Reason:   reason,
	}}
}
