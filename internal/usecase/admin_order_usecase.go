package usecase

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/rs/zerolog"
)

type AdminOrderUsecase struct {
	tx    repo.TransactionManager
	cache CacheInvalidator
	log   zerolog.Logger
}

func NewAdminOrderUsecase(tx repo.TransactionManager, cache CacheInvalidator, log zerolog.Logger) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, cache: cache, log: log}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

type AdminOrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// 管理者が変更できる遷移（同じ値への変更は何もしない）
var adminTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending: {model.OrderStatusCancelled},
	model.OrderStatusPaid:    {model.OrderStatusDelivered},
}

func validOrderStatus(s model.OrderStatus) bool {
	switch s {
	case model.OrderStatusPending, model.OrderStatusPaid, model.OrderStatusDelivered, model.OrderStatusCancelled:
		return true
	}
	return false
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (AdminOrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return AdminOrderListOutput{}, NewHTTPError(KindValidation, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return AdminOrderListOutput{}, NewHTTPError(KindValidation, "invalid limit")
	}
	if f.Status != "" && !validOrderStatus(model.OrderStatus(f.Status)) {
		return AdminOrderListOutput{}, NewHTTPError(KindValidation, "invalid status")
	}

	out := AdminOrderListOutput{Page: f.Page, Limit: f.Limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return newInternalError("db error", err)
		}

		out.Total = total
		out.Items = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return newInternalError("db error", err)
			}
			out.Items = append(out.Items, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return AdminOrderListOutput{}, asUsecaseError(err, "db error")
	}
	return out, nil
}

// ステータス更新（終端の delivered/cancelled からは動かさない）
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, orderID string, in AdminUpdateOrderStatusInput) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return NewHTTPError(KindValidation, "invalid id")
	}

	newStatus := model.OrderStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if !validOrderStatus(newStatus) {
		return NewHTTPError(KindValidation, "invalid status")
	}

	var customerID int64
	changed := false

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 注文取得
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(KindNotFound, "order not found")
		}
		if err != nil {
			return newInternalError("db error", err)
		}
		customerID = o.CustomerID

		// すでに同じなら何もしない
		if o.Status == newStatus {
			return nil
		}

		allowed := false
		for _, s := range adminTransitions[o.Status] {
			if s == newStatus {
				allowed = true
				break
			}
		}
		if !allowed {
			return NewHTTPError(KindValidation, "cannot change "+string(o.Status)+" order to "+string(newStatus))
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			return newInternalError("db error", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return asUsecaseError(err, "db error")
	}

	if changed {
		invalidateOrders(ctx, u.cache, u.log, customerID)
	}
	return nil
}
