package dto

// SubmissionResponse は view_submission への応答ボディです
// response_action が "clear" の場合モーダルは閉じ、
// "errors" の場合は対象ブロックにインラインエラーが表示されます
type SubmissionResponse struct {
	ResponseAction string            `json:"response_action"`
	Errors         map[string]string `json:"errors,omitempty"`
}

// ClearResponse はモーダルを閉じる応答を作ります
func ClearResponse() SubmissionResponse {
	return SubmissionResponse{ResponseAction: "clear"}
}

// ErrorsResponse はIssue選択ブロックにインラインエラーを表示する応答を作ります
func ErrorsResponse(message string) SubmissionResponse {
	return SubmissionResponse{
		ResponseAction: "errors",
		Errors:         map[string]string{"issue": message},
	}
}

// OptionsResponse は block_suggestion（external_selectの検索）への応答ボディです
type OptionsResponse struct {
	Options []SelectOption `json:"options"`
}

// SelectOption は選択肢1件を表します
type SelectOption struct {
	Text  TextObject `json:"text"`
	Value string     `json:"value"`
}

// TextObject は Block Kit のテキストオブジェクトです
type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewSelectOption は plain_text の選択肢を作ります
func NewSelectOption(text, value string) SelectOption {
	return SelectOption{
		Text:  TextObject{Type: "plain_text", Text: text},
		Value: value,
	}
}
