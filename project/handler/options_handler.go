package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/mirai888/send-slack-message-to-issue/project/dto"
	"github.com/mirai888/send-slack-message-to-issue/project/infrastructure/httpsec"
	"github.com/mirai888/send-slack-message-to-issue/project/service"
)

// optionTextLimit はSlackの選択肢テキストの最大文字数です
const optionTextLimit = 75

// IssueSearcher はIssue検索の最小インターフェース
type IssueSearcher interface {
	// SearchIssues は利用者の入力文字列でIssueを検索します
	SearchIssues(ctx context.Context, query string) ([]service.IssueSummary, error)
}

// OptionsHandler はモーダルの external_select からの選択肢リクエスト
// （block_suggestion）を処理します
type OptionsHandler struct {
	signingSecret string
	searcher      IssueSearcher
	logger        zerolog.Logger
}

// NewOptionsHandler はオプションハンドラーを作成します
func NewOptionsHandler(signingSecret string, searcher IssueSearcher, logger zerolog.Logger) *OptionsHandler {
	return &OptionsHandler{
		signingSecret: signingSecret,
		searcher:      searcher,
		logger:        logger,
	}
}

// ServeHTTP は選択肢リクエスト受信エンドポイントです
func (h *OptionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := httpsec.VerifySlackSignature(h.signingSecret,
		r.Header.Get("X-Slack-Signature"),
		r.Header.Get("X-Slack-Request-Timestamp"),
		string(body)); err != nil {
		h.logger.Warn().Err(err).Msg("signature verification failed")
		http.Error(w, "signature verification failed", http.StatusUnauthorized)
		return
	}

	callback, err := parseInteractionPayload(body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("invalid options payload")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if callback.Type != slack.InteractionTypeBlockSuggestion || callback.ActionID != "issue_select" {
		// 対象外のリクエストには空の選択肢を返す
		writeJSON(w, dto.OptionsResponse{Options: []dto.SelectOption{}}, h.logger)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issues, err := h.searcher.SearchIssues(ctx, callback.Value)
	if err != nil {
		h.logger.Error().Err(err).Str("query", callback.Value).Msg("issue search failed")
		// 検索失敗時も選択肢なしとして 200 を返す（モーダルを壊さない）
		writeJSON(w, dto.OptionsResponse{Options: []dto.SelectOption{}}, h.logger)
		return
	}

	options := make([]dto.SelectOption, 0, len(issues))
	for _, issue := range issues {
		text := truncateOption("#"+strconv.Itoa(issue.Number)+" "+issue.Title, optionTextLimit)
		options = append(options, dto.NewSelectOption(text, strconv.Itoa(issue.Number)))
	}

	writeJSON(w, dto.OptionsResponse{Options: options}, h.logger)
}

// truncateOption は選択肢テキストを上限文字数に収めます
func truncateOption(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
