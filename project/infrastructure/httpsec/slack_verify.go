package httpsec

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"strconv"
	"time"
)

// maxTimestampSkew はリクエスト時刻の許容ずれです（リプレイ攻撃対策）
const maxTimestampSkew = 300 * time.Second

// VerifySlackSignature は Slack からのリクエストの署名を検証します
// リクエストの X-Slack-Signature ヘッダと X-Slack-Request-Timestamp ヘッダを確認し、
// 改ざんやリプレイ攻撃から保護します。
// 署名はフォームパース前の生のボディバイト列に対して計算されるため、
// body には受信したままの文字列を渡す必要があります
func VerifySlackSignature(signingSecret, signature, timestamp, body string) error {
	if signingSecret == "" {
		return fmt.Errorf("signing secret is not configured")
	}
	if signature == "" {
		return fmt.Errorf("missing X-Slack-Signature header")
	}
	if timestamp == "" {
		return fmt.Errorf("missing X-Slack-Request-Timestamp header")
	}

	// タイムスタンプの検証（5分以内）
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp format: %w", err)
	}

	now := time.Now().Unix()
	if abs(now-ts) > int64(maxTimestampSkew/time.Second) {
		return fmt.Errorf("request timestamp too old: now=%d, ts=%d", now, ts)
	}

	// 署名の検証
	// Slack署名: "v0=<hash>"
	// hash = HMAC-SHA256("v0:<timestamp>:<body>", signingSecret)
	baseString := fmt.Sprintf("v0:%s:%s", timestamp, body)
	expectedSignature := computeSignature(signingSecret, baseString)

	// 定時間比較（タイミング攻撃対策）
	if !hmac.Equal([]byte(expectedSignature), []byte(signature)) {
		return fmt.Errorf("signature mismatch")
	}

	return nil
}

// computeSignature は Slack 署名を計算します
func computeSignature(signingSecret, baseString string) string {
	h := hmac.New(sha256.New, []byte(signingSecret))
	h.Write([]byte(baseString))
	hash := h.Sum(nil)
	// 16進数文字列に変換して "v0=" プレフィックスを付与
	return fmt.Sprintf("v0=%x", hash)
}

// SignRequest はテストや検証用に署名値を生成します
func SignRequest(signingSecret, timestamp, body string) string {
	return computeSignature(signingSecret, fmt.Sprintf("v0:%s:%s", timestamp, body))
}

// abs は絶対値を計算します
func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
