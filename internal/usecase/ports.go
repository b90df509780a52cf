package usecase

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain/model"
)

type Clock interface {
	Now() time.Time
}

// 決済 reference の採番
type IDGenerator interface {
	NewID() string
}

// コミット後に呼ぶ。失敗しても業務処理は成功扱い
type CacheInvalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

type OrdersCache interface {
	CacheInvalidator
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// 通知サービス向け（送信失敗は注文に影響しない）
type EventPublisher interface {
	Publish(ctx context.Context, ev model.OrderEvent) error
}

func UserOrdersCacheKey(customerID int64) string {
	return fmt.Sprintf("user_orders_%d", customerID)
}
