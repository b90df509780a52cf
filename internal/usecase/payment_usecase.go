package usecase

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/domain/money"
	"storefront/internal/gateway"
	repo "storefront/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// PaymentUsecase reconciles gateway results with orders and mints new
// references for orders that are still unpaid.
type PaymentUsecase struct {
	tx          repo.TransactionManager
	customers   repo.CustomerRepository
	gateway     gateway.PaymentGateway
	cache       CacheInvalidator
	events      EventPublisher
	ids         IDGenerator
	clock       Clock
	log         zerolog.Logger
	callbackURL string

	// 同じ reference の同時検証はまとめる
	verifies singleflight.Group
}

func NewPaymentUsecase(
	tx repo.TransactionManager,
	customers repo.CustomerRepository,
	gw gateway.PaymentGateway,
	cache CacheInvalidator,
	events EventPublisher,
	ids IDGenerator,
	clock Clock,
	log zerolog.Logger,
	callbackURL string,
) *PaymentUsecase {
	return &PaymentUsecase{
		tx:          tx,
		customers:   customers,
		gateway:     gw,
		cache:       cache,
		events:      events,
		ids:         ids,
		clock:       clock,
		log:         log,
		callbackURL: callbackURL,
	}
}

type VerifyOutput struct {
	Reference     string `json:"reference"`
	OrderID       string `json:"order_id,omitempty"`
	GatewayStatus string `json:"gateway_status"`
	Paid          bool   `json:"paid"`
	CanPayAgain   bool   `json:"can_pay_again"`
	Message       string `json:"message"`
}

// Verify asks the gateway for the definitive status of reference.
// A non-success status is not an error: the output carries CanPayAgain and the
// order is left as it was.
func (u *PaymentUsecase) Verify(ctx context.Context, reference string) (VerifyOutput, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return VerifyOutput{}, NewHTTPError(KindValidation, "reference is required")
	}

	//先に来た呼び出しのキャンセルで後続を巻き込まない
	shared := context.WithoutCancel(ctx)
	v, err, _ := u.verifies.Do(reference, func() (interface{}, error) {
		return u.verify(shared, reference)
	})
	if err != nil {
		return VerifyOutput{}, err
	}
	return v.(VerifyOutput), nil
}

func (u *PaymentUsecase) verify(ctx context.Context, reference string) (VerifyOutput, error) {
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		_, err := r.Payments().FindByReference(ctx, reference)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(KindNotFound, "payment record not found")
		}
		if err != nil {
			return newInternalError("db error", err)
		}
		return nil
	})
	if err != nil {
		return VerifyOutput{}, asUsecaseError(err, "db error")
	}

	res, err := u.gateway.Verify(ctx, reference)
	if err != nil {
		u.log.Warn().Err(err).Str("reference", reference).Msg("payment verification unavailable")
		return VerifyOutput{}, newGatewayUnavailable(err)
	}
	if !res.OK {
		return VerifyOutput{}, newGatewayError(KindVerificationFailed, "verification failed", res.Raw)
	}

	if !res.Succeeded() {
		alreadyPaid := false
		err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			t, err := r.Payments().FindByReference(ctx, reference)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(KindNotFound, "payment record not found")
			}
			if err != nil {
				return newInternalError("db error", err)
			}
			// 成功済みの取引は pending に戻さない（注文は paid のまま）
			if t.Status == model.PaymentStatusSuccess {
				alreadyPaid = true
				return nil
			}
			return r.Payments().MarkPending(ctx, t.ID, string(res.Raw))
		})
		if err != nil {
			return VerifyOutput{}, asUsecaseError(err, "db error")
		}
		if alreadyPaid {
			u.log.Warn().
				Str("reference", reference).
				Str("gateway_status", res.Status).
				Msg("gateway reported non-success for a verified payment")
			return VerifyOutput{
				Reference:     reference,
				GatewayStatus: res.Status,
				Paid:          true,
				Message:       "payment already verified",
			}, nil
		}
		return VerifyOutput{
			Reference:     reference,
			GatewayStatus: res.Status,
			CanPayAgain:   true,
			Message:       "payment was not successful",
		}, nil
	}

	var (
		order      model.Order
		newlyPaid  bool
		promotable bool
	)
	now := u.clock.Now()

	//取引と注文の昇格は1トランザクション
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		t, err := r.Payments().FindByReference(ctx, reference)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(KindNotFound, "payment record not found")
		}
		if err != nil {
			return newInternalError("db error", err)
		}
		if err := r.Payments().MarkSuccess(ctx, t.ID, res.AmountMinor, now, string(res.Raw)); err != nil {
			return newInternalError("db error", err)
		}

		o, err := r.Orders().FindByReference(ctx, reference)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(KindNotFound, "order not found for reference")
		}
		if err != nil {
			return newInternalError("db error", err)
		}
		order = o

		//配達済み・キャンセル済みは戻さない
		switch o.Status {
		case model.OrderStatusPending, model.OrderStatusPaid:
			promotable = true
			newlyPaid = o.Status == model.OrderStatusPending
			if err := r.Orders().MarkPaid(ctx, o.ID, t.ID); err != nil {
				return newInternalError("db error", err)
			}
		}
		return nil
	})
	if err != nil {
		return VerifyOutput{}, asUsecaseError(err, "db error")
	}

	if expected, err := money.ToMinorUnits(order.TotalAmount); err == nil && expected != res.AmountMinor {
		u.log.Warn().
			Str("order_id", order.ID).
			Int64("expected_minor", expected).
			Int64("gateway_minor", res.AmountMinor).
			Msg("gateway amount differs from order total")
	}

	invalidateOrders(ctx, u.cache, u.log, order.CustomerID)
	if newlyPaid {
		order.Status = model.OrderStatusPaid
		publishOrderEvent(ctx, u.events, u.clock, u.log, order, model.OrderEventPaid)
	}
	if !promotable {
		u.log.Info().Str("order_id", order.ID).Str("status", string(order.Status)).Msg("verified payment for closed order")
	}

	return VerifyOutput{
		Reference:     reference,
		OrderID:       order.ID,
		GatewayStatus: res.Status,
		Paid:          true,
		Message:       "payment verified",
	}, nil
}

type RepayOutput struct {
	OrderID     string `json:"order_id"`
	Reference   string `json:"reference"`
	PaymentLink string `json:"payment_link"`
}

// PayViaReference starts a new payment session for a pending order.
// The existing ledger row keeps its id and only its reference moves, so an
// order never accumulates duplicate transactions.
func (u *PaymentUsecase) PayViaReference(ctx context.Context, userID int64, reference string) (RepayOutput, error) {
	if userID <= 0 {
		return RepayOutput{}, NewHTTPError(KindUnauthorized, "unauthorized")
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return RepayOutput{}, NewHTTPError(KindValidation, "reference is required")
	}

	customer, err := u.customers.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return RepayOutput{}, NewHTTPError(KindNotFound, "customer account not found")
	}
	if err != nil {
		return RepayOutput{}, newInternalError("db error", err)
	}

	var order model.Order
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByReference(ctx, reference)
		//他人の注文は「存在しない扱い」にする
		if errors.Is(err, repo.ErrNotFound) || (err == nil && o.CustomerID != customer.ID) {
			return NewHTTPError(KindNotFound, "order not found")
		}
		if err != nil {
			return newInternalError("db error", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return RepayOutput{}, asUsecaseError(err, "db error")
	}

	if !order.AwaitingPayment() {
		return RepayOutput{}, NewHTTPError(KindValidation, "order is not awaiting payment")
	}
	payerEmail := firstNonEmpty(customer.Email, order.Email)
	if payerEmail == "" {
		return RepayOutput{}, NewHTTPError(KindValidation, "email is required for payment")
	}
	amountMinor, err := money.ToMinorUnits(order.TotalAmount)
	if err != nil {
		return RepayOutput{}, newInternalError("invalid order total", err)
	}

	newRef := u.ids.NewID()
	res, err := u.gateway.Initialize(ctx, gateway.InitializeRequest{
		AmountMinor: amountMinor,
		Reference:   newRef,
		Email:       payerEmail,
		CallbackURL: u.callbackURL,
	})
	if err != nil {
		u.log.Warn().Err(err).Str("order_id", order.ID).Msg("payment re-initialization unavailable")
		return RepayOutput{}, newGatewayUnavailable(err)
	}
	if !res.OK {
		return RepayOutput{}, newGatewayError(KindPaymentInitiationFailed, "payment initialization failed", res.Raw)
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		t, err := r.Payments().FindByReference(ctx, order.Reference)
		switch {
		case err == nil:
			if err := r.Payments().ReassignReference(ctx, t.ID, newRef, string(res.Raw)); err != nil {
				return newInternalError("db error", err)
			}
			if order.PaymentID == nil || *order.PaymentID != t.ID {
				if err := r.Orders().AttachPayment(ctx, order.ID, t.ID); err != nil {
					return newInternalError("db error", err)
				}
			}
		case errors.Is(err, repo.ErrNotFound):
			//初回の決済開始に失敗していた注文
			txn := &model.PaymentTransaction{
				Reference:       newRef,
				Amount:          money.MajorUnits(order.TotalAmount),
				Status:          model.PaymentStatusPending,
				GatewayResponse: string(res.Raw),
			}
			if err := r.Payments().Create(ctx, txn); err != nil {
				return newInternalError("db error", err)
			}
			if err := r.Orders().AttachPayment(ctx, order.ID, txn.ID); err != nil {
				return newInternalError("db error", err)
			}
		default:
			return newInternalError("db error", err)
		}

		err = r.Orders().UpdateReference(ctx, order.ID, order.Reference, newRef)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(KindValidation, "order reference changed, retry payment")
		}
		if err != nil {
			return newInternalError("db error", err)
		}
		return nil
	})
	if err != nil {
		return RepayOutput{}, asUsecaseError(err, "db error")
	}

	invalidateOrders(ctx, u.cache, u.log, order.CustomerID)

	return RepayOutput{
		OrderID:     order.ID,
		Reference:   newRef,
		PaymentLink: res.AuthorizationURL,
	}, nil
}
