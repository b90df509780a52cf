package usecase

import "time"

// イベント送信の待ち時間をテスト用に差し替える
func SetEventPublishTimeout(d time.Duration) (restore func()) {
	prev := eventPublishTimeout
	eventPublishTimeout = d
	return func() { eventPublishTimeout = prev }
}
