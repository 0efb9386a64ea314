package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/mirai888/send-slack-message-to-issue/project/domain"
	"github.com/mirai888/send-slack-message-to-issue/project/dto"
	"github.com/mirai888/send-slack-message-to-issue/project/infrastructure/httpsec"
	"github.com/mirai888/send-slack-message-to-issue/project/service"
)

const (
	// actionCallbackID はSlackアプリに登録したメッセージアクションの callback_id
	actionCallbackID = "send_to_issue"

	// modalCallbackID はIssue選択モーダルの callback_id
	modalCallbackID = "send_to_issue_modal"

	// submissionTimeout は view_submission をインラインで処理する際の上限です。
	// 添付ファイルの転送を応答前に完了させるため長めに取ります
	submissionTimeout = 3 * time.Minute
)

// InteractionsHandler は Slack のインタラクティブペイロード
// （message_action / view_submission）を処理します
type InteractionsHandler struct {
	signingSecret string
	relay         service.RelayService
	logger        zerolog.Logger
}

// NewInteractionsHandler はインタラクションハンドラーを作成します
func NewInteractionsHandler(signingSecret string, relay service.RelayService, logger zerolog.Logger) *InteractionsHandler {
	return &InteractionsHandler{
		signingSecret: signingSecret,
		relay:         relay,
		logger:        logger,
	}
}

// ServeHTTP は Slack インタラクション受信エンドポイントです
func (h *InteractionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 署名は生のボディバイト列に対して検証するため、パース前に読み込む
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
		h.logger.Warn().Err(err).Msg("invalid interaction payload")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	switch callback.Type {
	case slack.InteractionTypeMessageAction:
		h.handleMessageAction(w, callback)
	case slack.InteractionTypeViewSubmission:
		h.handleViewSubmission(w, callback)
	default:
		// 対象外のインタラクションは成功応答だけ返す
		w.WriteHeader(http.StatusOK)
	}
}

// handleMessageAction はメッセージアクションを処理します。
// モーダル表示の失敗はログに残すだけで応答は常に 200 です
// （trigger_id は数秒で失効する単回使用トークンのためリトライ手段がありません）
func (h *InteractionsHandler) handleMessageAction(w http.ResponseWriter, callback *slack.InteractionCallback) {
	if callback.CallbackID != actionCallbackID {
		w.WriteHeader(http.StatusOK)
		return
	}

	ev := &service.ActionEvent{
		TriggerID:   callback.TriggerID,
		Text:        callback.Message.Text,
		Files:       fileRefsFromMessage(callback),
		UserName:    callback.User.Name,
		ChannelID:   callback.Channel.ID,
		ChannelName: callback.Channel.Name,
		MessageTS:   callback.Message.Timestamp,
		TeamID:      callback.Team.ID,
		TeamDomain:  callback.Team.Domain,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.relay.OnMessageAction(ctx, ev); err != nil {
		h.logger.Error().Err(err).Str("user", ev.UserName).Msg("message action failed")
	}

	w.WriteHeader(http.StatusOK)
}

// handleViewSubmission はモーダル送信をインラインで処理します。
// 成功時はモーダルを閉じ、パイプライン失敗時はインラインエラーを返して
// モーダルを開いたままにします。ファイル単位の失敗は成功扱いです
// （コメント内の失敗セクションに反映されます）
func (h *InteractionsHandler) handleViewSubmission(w http.ResponseWriter, callback *slack.InteractionCallback) {
	if callback.View.CallbackID != modalCallbackID {
		w.WriteHeader(http.StatusOK)
		return
	}

	issueValue := selectedIssueValue(callback)
	if issueValue == "" {
		writeJSON(w, dto.ErrorsResponse("Please select an issue"), h.logger)
		return
	}

	ev := &service.SubmissionEvent{
		IssueValue:  issueValue,
		RawMetadata: callback.View.PrivateMetadata,
	}

	ctx, cancel := context.WithTimeout(context.Background(), submissionTimeout)
	defer cancel()

	if err := h.relay.OnViewSubmission(ctx, ev); err != nil {
		h.logger.Error().Err(err).Str("issue", issueValue).Msg("view submission failed")
		writeJSON(w, dto.ErrorsResponse("Failed to post the comment. Please try again."), h.logger)
		return
	}

	writeJSON(w, dto.ClearResponse(), h.logger)
}

// parseInteractionPayload はフォームの payload フィールドからJSONを取り出します
func parseInteractionPayload(body []byte) (*slack.InteractionCallback, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}

	payload := values.Get("payload")
	if payload == "" {
		return nil, domain.ErrInvalid
	}

	var callback slack.InteractionCallback
	if err := json.Unmarshal([]byte(payload), &callback); err != nil {
		return nil, err
	}
	return &callback, nil
}

// fileRefsFromMessage は対象メッセージの添付ファイル一覧をFileRefに写します
func fileRefsFromMessage(callback *slack.InteractionCallback) []domain.FileRef {
	files := callback.Message.Files
	if len(files) == 0 {
		return nil
	}

	refs := make([]domain.FileRef, 0, len(files))
	for _, f := range files {
		downloadURL := f.URLPrivateDownload
		if downloadURL == "" {
			downloadURL = f.URLPrivate
		}
		refs = append(refs, domain.FileRef{
			ID:          f.ID,
			Name:        f.Name,
			Mimetype:    f.Mimetype,
			DownloadURL: downloadURL,
			Size:        int64(f.Size),
		})
	}
	return refs
}

// selectedIssueValue は state.values からIssueピッカーの選択値を取り出します
func selectedIssueValue(callback *slack.InteractionCallback) string {
	if callback.View.State == nil {
		return ""
	}
	block, ok := callback.View.State.Values["issue"]
	if !ok {
		return ""
	}
	action, ok := block["issue_select"]
	if !ok {
		return ""
	}
	return action.SelectedOption.Value
}

// writeJSON はJSON応答を書き込みます
func writeJSON(w http.ResponseWriter, v any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("failed to write response")
	}
}
