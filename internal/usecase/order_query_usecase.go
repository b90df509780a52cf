package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	repo "storefront/internal/repository"

	"github.com/rs/zerolog"
)

type OrderQueryUsecase struct {
	tx        repo.TransactionManager
	customers repo.CustomerRepository
	cache     OrdersCache
	ttl       time.Duration
	log       zerolog.Logger
}

func NewOrderQueryUsecase(tx repo.TransactionManager, customers repo.CustomerRepository, cache OrdersCache, ttl time.Duration, log zerolog.Logger) *OrderQueryUsecase {
	return &OrderQueryUsecase{tx: tx, customers: customers, cache: cache, ttl: ttl, log: log}
}

type OrderCodeOutput struct {
	OrderID string `json:"order_id"` // 表示用の注文コード
}

// ListMyOrders is a read-through cache over the customer's orders, newest
// first. Cache failures fall back to the database.
func (u *OrderQueryUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	customerID, err := u.customerID(ctx, userID)
	if err != nil {
		return []OrderOutput{}, err
	}
	key := UserOrdersCacheKey(customerID)

	if b, ok, err := u.cache.Get(ctx, key); err != nil {
		u.log.Warn().Err(err).Str("key", key).Msg("orders cache read failed")
	} else if ok {
		var cached []OrderOutput
		if err := json.Unmarshal(b, &cached); err == nil {
			return cached, nil
		}
		u.log.Warn().Str("key", key).Msg("orders cache entry is corrupt")
	}

	var outs []OrderOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListByCustomerID(ctx, customerID)
		if err != nil {
			return newInternalError("db error", err)
		}
		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			outs = append(outs, toOrderOutput(o, o.Items))
		}
		return nil
	})
	if err != nil {
		return []OrderOutput{}, asUsecaseError(err, "db error")
	}

	if b, err := json.Marshal(outs); err == nil {
		if err := u.cache.Set(ctx, key, b, u.ttl); err != nil {
			u.log.Warn().Err(err).Str("key", key).Msg("orders cache write failed")
		}
	}
	return outs, nil
}

// 自分の注文の reference から注文コードを返す
func (u *OrderQueryUsecase) GetMyOrderCode(ctx context.Context, userID int64, reference string) (OrderCodeOutput, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return OrderCodeOutput{}, NewHTTPError(KindValidation, "reference is required")
	}
	customerID, err := u.customerID(ctx, userID)
	if err != nil {
		return OrderCodeOutput{}, err
	}

	var out OrderCodeOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByReference(ctx, reference)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && o.CustomerID != customerID) {
			return NewHTTPError(KindNotFound, "order not found")
		}
		if err != nil {
			return newInternalError("db error", err)
		}
		out = OrderCodeOutput{OrderID: o.OrderCode}
		return nil
	})
	if err != nil {
		return OrderCodeOutput{}, asUsecaseError(err, "db error")
	}
	return out, nil
}

func (u *OrderQueryUsecase) customerID(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, NewHTTPError(KindUnauthorized, "unauthorized")
	}
	c, err := u.customers.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, NewHTTPError(KindNotFound, "customer account not found")
	}
	if err != nil {
		return 0, newInternalError("db error", err)
	}
	return c.ID, nil
}
