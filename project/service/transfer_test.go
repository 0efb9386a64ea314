package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirai888/send-slack-message-to-issue/project/domain"
)

// fakeSlackPort は SlackPort のテスト用実装です
type fakeSlackPort struct {
	mu sync.Mutex

	openedTrigger  string
	openedMetadata string
	openErr        error
	openCalls      int

	resolved    map[string]*domain.FileRef
	resolveErr  error
	downloads   map[string][]byte
	downloadErr map[string]error

	resolveCalls  []string
	downloadCalls []string
}

func (f *fakeSlackPort) OpenIssueModal(ctx context.Context, triggerID, privateMetadata string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openCalls++
	f.openedTrigger = triggerID
	f.openedMetadata = privateMetadata
	return f.openErr
}

func (f *fakeSlackPort) ResolveFile(ctx context.Context, fileID string) (*domain.FileRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls = append(f.resolveCalls, fileID)
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	ref, ok := f.resolved[fileID]
	if !ok {
		return nil, errors.New("file not found")
	}
	return ref, nil
}

func (f *fakeSlackPort) DownloadFile(ctx context.Context, downloadURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadCalls = append(f.downloadCalls, downloadURL)
	if err, ok := f.downloadErr[downloadURL]; ok {
		return nil, err
	}
	data, ok := f.downloads[downloadURL]
	if !ok {
		return nil, errors.New("unknown url")
	}
	return data, nil
}

// fakeSink は AssetSink のテスト用実装です
type fakeSink struct {
	mu sync.Mutex

	storeCalls []string
	errFor     map[string]error
	panicFor   map[string]bool
}

func (f *fakeSink) Store(ctx context.Context, data []byte, filename, mimetype string, issueNumber int) (string, error) {
	f.mu.Lock()
	f.storeCalls = append(f.storeCalls, filename)
	shouldPanic := f.panicFor[filename]
	err := f.errFor[filename]
	f.mu.Unlock()

	if shouldPanic {
		panic("sink exploded")
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://raw.example.com/%d/%s", issueNumber, filename), nil
}

// fakeGitHubPort は GitHubPort のテスト用実装です
type fakeGitHubPort struct {
	mu sync.Mutex

	comments   []postedComment
	commentErr error
	issues     []IssueSummary
	searchErr  error
}

type postedComment struct {
	issue int
	body  string
}

func (f *fakeGitHubPort) CreateIssueComment(ctx context.Context, issueNumber int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return f.commentErr
	}
	f.comments = append(f.comments, postedComment{issue: issueNumber, body: body})
	return nil
}

func (f *fakeGitHubPort) SearchIssues(ctx context.Context, query string) ([]IssueSummary, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.issues, nil
}

func newTestService(sp *fakeSlackPort, gp *fakeGitHubPort, sink *fakeSink) *relayService {
	return &relayService{
		sp:     sp,
		gp:     gp,
		sink:   sink,
		logger: zerolog.Nop(),
	}
}

func TestTransferFile_OversizeDeclaredSkipsDownload(t *testing.T) {
	sp := &fakeSlackPort{}
	rs := newTestService(sp, &fakeGitHubPort{}, &fakeSink{})

	f := domain.FileRef{
		ID:          "F1",
		Name:        "huge.png",
		Mimetype:    "image/png",
		DownloadURL: "https://files.example/huge.png",
		Size:        domain.MaxFileSize + 1,
	}

	result := rs.transferFile(context.Background(), f, 42)

	require.NotNil(t, result.Error)
	assert.Equal(t, "exceeds 10MB limit", result.Error.Reason)
	assert.Empty(t, sp.downloadCalls, "oversize file must not be downloaded")
}

func TestTransferFile_UnsupportedTypeSkipsDownload(t *testing.T) {
	sp := &fakeSlackPort{}
	rs := newTestService(sp, &fakeGitHubPort{}, &fakeSink{})

	f := domain.FileRef{
		ID:          "F1",
		Name:        "archive.zip",
		Mimetype:    "application/zip",
		DownloadURL: "https://files.example/archive.zip",
	}

	result := rs.transferFile(context.Background(), f, 42)

	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Reason, "Unsupported file type")
	assert.Contains(t, result.Error.Reason, "application/zip")
	assert.Empty(t, sp.downloadCalls)
}

func TestTransferFile_ResolvesIncompleteRef(t *testing.T) {
	sp := &fakeSlackPort{
		resolved: map[string]*domain.FileRef{
			"F1": {
				ID:          "F1",
				Name:        "shot.png",
				Mimetype:    "image/png",
				DownloadURL: "https://files.example/shot.png",
				Size:        1024,
			},
		},
		downloads: map[string][]byte{
			"https://files.example/shot.png": []byte("png-bytes"),
		},
	}
	sink := &fakeSink{}
	rs := newTestService(sp, &fakeGitHubPort{}, sink)

	result := rs.transferFile(context.Background(), domain.FileRef{ID: "F1"}, 42)

	require.NotNil(t, result.Asset)
	assert.Equal(t, "shot.png", result.Asset.Filename)
	assert.Equal(t, "image/png", result.Asset.Mimetype)
	assert.Equal(t, []string{"F1"}, sp.resolveCalls)
	assert.Equal(t, []string{"shot.png"}, sink.storeCalls)
}

func TestTransferFile_ResolveFailure(t *testing.T) {
	sp := &fakeSlackPort{resolveErr: errors.New("files.info unavailable")}
	rs := newTestService(sp, &fakeGitHubPort{}, &fakeSink{})

	result := rs.transferFile(context.Background(), domain.FileRef{ID: "F1", Name: "x.png"}, 42)

	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Reason, "metadata lookup failed")
	assert.Empty(t, sp.downloadCalls)
}

func TestTransferFile_DownloadFailure(t *testing.T) {
	url := "https://files.example/shot.png"
	sp := &fakeSlackPort{
		downloadErr: map[string]error{
			url: errors.New("received HTML instead of file content (check bot token files:read scope)"),
		},
	}
	sink := &fakeSink{}
	rs := newTestService(sp, &fakeGitHubPort{}, sink)

	f := domain.FileRef{ID: "F1", Name: "shot.png", Mimetype: "image/png", DownloadURL: url}
	result := rs.transferFile(context.Background(), f, 42)

	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Reason, "download failed")
	assert.Contains(t, result.Error.Reason, "check bot token")
	assert.Empty(t, sink.storeCalls, "failed download must not be uploaded")
}

func TestTransferFile_ActualSizeRechecked(t *testing.T) {
	url := "https://files.example/liar.png"
	sp := &fakeSlackPort{
		downloads: map[string][]byte{
			url: make([]byte, domain.MaxFileSize+1),
		},
	}
	sink := &fakeSink{}
	rs := newTestService(sp, &fakeGitHubPort{}, sink)

	// 申告サイズは小さいが実体は上限超え
	f := domain.FileRef{ID: "F1", Name: "liar.png", Mimetype: "image/png", DownloadURL: url, Size: 100}
	result := rs.transferFile(context.Background(), f, 42)

	require.NotNil(t, result.Error)
	assert.Equal(t, "exceeds 10MB limit", result.Error.Reason)
	assert.Empty(t, sink.storeCalls)
}

func TestTransferFile_UploadFailure(t *testing.T) {
	url := "https://files.example/shot.png"
	sp := &fakeSlackPort{downloads: map[string][]byte{url: []byte("bytes")}}
	sink := &fakeSink{errFor: map[string]error{"shot.png": errors.New("contents API 502")}}
	rs := newTestService(sp, &fakeGitHubPort{}, sink)

	f := domain.FileRef{ID: "F1", Name: "shot.png", Mimetype: "image/png", DownloadURL: url}
	result := rs.transferFile(context.Background(), f, 42)

	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Reason, "upload failed")
}

func TestTransferAll_OneFailureDoesNotAbortBatch(t *testing.T) {
	files := []domain.FileRef{
		{ID: "F1", Name: "a.png", Mimetype: "image/png", DownloadURL: "https://files.example/a.png"},
		{ID: "F2", Name: "boom.png", Mimetype: "image/png", DownloadURL: "https://files.example/boom.png"},
		{ID: "F3", Name: "c.pdf", Mimetype: "application/pdf", DownloadURL: "https://files.example/c.pdf"},
	}
	sp := &fakeSlackPort{
		downloads: map[string][]byte{
			"https://files.example/a.png":    []byte("a"),
			"https://files.example/boom.png": []byte("b"),
			"https://files.example/c.pdf":    []byte("c"),
		},
	}
	// 1件だけアップロード中にpanicさせる
	sink := &fakeSink{panicFor: map[string]bool{"boom.png": true}}
	rs := newTestService(sp, &fakeGitHubPort{}, sink)

	succeeded, failed := rs.transferAll(context.Background(), files, 42)

	require.Len(t, succeeded, 2)
	require.Len(t, failed, 1)
	assert.Equal(t, "boom.png", failed[0].Filename)
	assert.Contains(t, failed[0].Reason, "unexpected error")

	// 入力順が保持される
	assert.Equal(t, "a.png", succeeded[0].Filename)
	assert.Equal(t, "c.pdf", succeeded[1].Filename)
}

func TestTransferAll_Empty(t *testing.T) {
	rs := newTestService(&fakeSlackPort{}, &fakeGitHubPort{}, &fakeSink{})

	succeeded, failed := rs.transferAll(context.Background(), nil, 42)
	assert.Nil(t, succeeded)
	assert.Nil(t, failed)
}

func TestTransferAll_ManyFilesBounded(t *testing.T) {
	downloads := make(map[string][]byte)
	var files []domain.FileRef
	for i := 0; i < 12; i++ {
		url := fmt.Sprintf("https://files.example/f%d.png", i)
		downloads[url] = []byte("data")
		files = append(files, domain.FileRef{
			ID:          fmt.Sprintf("F%d", i),
			Name:        fmt.Sprintf("f%d.png", i),
			Mimetype:    "image/png",
			DownloadURL: url,
		})
	}
	sp := &fakeSlackPort{downloads: downloads}
	sink := &fakeSink{}
	rs := newTestService(sp, &fakeGitHubPort{}, sink)

	succeeded, failed := rs.transferAll(context.Background(), files, 7)

	require.Len(t, succeeded, 12)
	require.Empty(t, failed)
	for i, asset := range succeeded {
		if !strings.HasPrefix(asset.Filename, fmt.Sprintf("f%d", i)) {
			t.Errorf("result order broken at %d: %s", i, asset.Filename)
		}
	}
}
