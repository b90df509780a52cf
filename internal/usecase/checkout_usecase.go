package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/domain/money"
	"storefront/internal/gateway"
	repo "storefront/internal/repository"
	"storefront/internal/validator"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type CheckoutConfig struct {
	CallbackURL       string // 決済後の戻り先
	PickupFollowUpURL string // 店頭受取の案内ページ
}

type CheckoutUsecase struct {
	tx        repo.TransactionManager
	customers repo.CustomerRepository
	gateway   gateway.PaymentGateway
	cache     CacheInvalidator
	events    EventPublisher
	ids       IDGenerator
	clock     Clock
	log       zerolog.Logger
	cfg       CheckoutConfig
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	customers repo.CustomerRepository,
	gw gateway.PaymentGateway,
	cache CacheInvalidator,
	events EventPublisher,
	ids IDGenerator,
	clock Clock,
	log zerolog.Logger,
	cfg CheckoutConfig,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:        tx,
		customers: customers,
		gateway:   gw,
		cache:     cache,
		events:    events,
		ids:       ids,
		clock:     clock,
		log:       log,
		cfg:       cfg,
	}
}

type CheckoutItemInput struct {
	ProductID string
	Quantity  int64
}

type CheckoutInput struct {
	Items      []CheckoutItemInput
	OrderType  string
	CouponCode string

	FirstName       string
	LastName        string
	Email           string
	Region          string
	City            string
	PhoneNumber     string
	ShippingAddress string
}

type CheckoutOutput struct {
	OrderID     string `json:"order_id"`
	OrderCode   string `json:"order_code"`
	Reference   string `json:"reference"`
	PaymentLink string `json:"payment_link"`
	Message     string `json:"message"`
}

// Checkout turns the submitted cart into a pending order.
//
// Order, items and the cart clear commit together before the gateway is
// contacted. A gateway failure therefore leaves a pending order that can be
// paid later through PayViaReference.
func (u *CheckoutUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (CheckoutOutput, error) {
	if userID <= 0 {
		return CheckoutOutput{}, NewHTTPError(KindUnauthorized, "unauthorized")
	}
	orderType, err := validateCheckoutInput(in)
	if err != nil {
		return CheckoutOutput{}, err
	}

	customer, err := u.customers.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return CheckoutOutput{}, NewHTTPError(KindNotFound, "customer account not found")
	}
	if err != nil {
		return CheckoutOutput{}, newInternalError("db error", err)
	}

	snapshot := orderSnapshot(customer, in)
	if snapshot.Email != "" && !validator.IsEmailLike(snapshot.Email) {
		return CheckoutOutput{}, NewHTTPError(KindValidation, "invalid email")
	}
	if snapshot.PhoneNumber != "" && !validator.IsPhoneLike(snapshot.PhoneNumber) {
		return CheckoutOutput{}, NewHTTPError(KindValidation, "invalid phone_number")
	}
	payerEmail := firstNonEmpty(customer.Email, snapshot.Email)
	if orderType == model.OrderTypeDelivery && payerEmail == "" {
		return CheckoutOutput{}, NewHTTPError(KindValidation, "email is required for delivery orders")
	}

	order := snapshot
	order.CustomerID = customer.ID
	order.Status = model.OrderStatusPending
	order.OrderType = orderType
	order.Reference = u.ids.NewID()

	var amountMinor int64

	//注文・明細・カート削除は1トランザクション
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		lines := make([]model.OrderItem, 0, len(in.Items))
		amounts := make([]decimal.Decimal, 0, len(in.Items))

		for _, it := range in.Items {
			p, err := r.Products().FindByID(ctx, it.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(KindNotFound, fmt.Sprintf("product with id %s not found", it.ProductID))
			}
			if err != nil {
				return newInternalError("db error", err)
			}

			//価格は注文時点で固定（クライアントの価格は使わない）
			price := p.SellingPrice()
			productID := p.ID
			lines = append(lines, model.OrderItem{
				ProductID:       &productID,
				Quantity:        it.Quantity,
				PriceAtPurchase: price,
			})
			amounts = append(amounts, money.LineTotal(price, money.Quantity(it.Quantity)))
		}

		order.TotalAmount = money.Sum(amounts...)
		minor, err := money.ToMinorUnits(order.TotalAmount)
		if err != nil {
			return NewHTTPError(KindValidation, "order total cannot be charged")
		}
		amountMinor = minor

		if code := strings.TrimSpace(in.CouponCode); code != "" {
			c, err := r.Coupons().FindByCode(ctx, code)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(KindValidation, "invalid coupon code")
			}
			if err != nil {
				return newInternalError("db error", err)
			}
			if !c.Redeemable() {
				return NewHTTPError(KindValidation, "coupon is not redeemable")
			}
			order.CouponID = &c.ID
		}

		if err := r.Orders().Create(ctx, &order); err != nil {
			return newInternalError("could not create order", err)
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, lines); err != nil {
			return newInternalError("db error", err)
		}
		if _, err := r.Carts().ClearByCustomerID(ctx, customer.ID); err != nil {
			return newInternalError("db error", err)
		}
		return nil
	})
	if err != nil {
		return CheckoutOutput{}, asUsecaseError(err, "db error")
	}

	u.invalidate(ctx, customer.ID)
	u.publish(ctx, order, model.OrderEventPlaced)

	out := CheckoutOutput{
		OrderID:   order.ID,
		OrderCode: order.OrderCode,
		Reference: order.Reference,
	}

	if orderType == model.OrderTypePickup {
		out.PaymentLink = u.cfg.PickupFollowUpURL
		out.Message = "order placed, we will contact you to arrange pickup"
		return out, nil
	}

	res, err := u.gateway.Initialize(ctx, gateway.InitializeRequest{
		AmountMinor: amountMinor,
		Reference:   order.Reference,
		Email:       payerEmail,
		CallbackURL: u.cfg.CallbackURL,
	})
	if err != nil {
		u.log.Warn().Err(err).Str("order_id", order.ID).Msg("payment initialization unavailable")
		return CheckoutOutput{}, newGatewayUnavailable(err)
	}
	if !res.OK {
		return CheckoutOutput{}, newGatewayError(KindPaymentInitiationFailed, "payment initialization failed", res.Raw)
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		txn := &model.PaymentTransaction{
			Reference:       order.Reference,
			Amount:          money.MajorUnits(order.TotalAmount),
			Status:          model.PaymentStatusPending,
			GatewayResponse: string(res.Raw),
		}
		if err := r.Payments().Create(ctx, txn); err != nil {
			return err
		}
		return r.Orders().AttachPayment(ctx, order.ID, txn.ID)
	})
	if err != nil {
		return CheckoutOutput{}, newInternalError("db error", err)
	}
	u.invalidate(ctx, customer.ID)

	out.PaymentLink = res.AuthorizationURL
	out.Message = "order placed, continue to payment"
	return out, nil
}

func validateCheckoutInput(in CheckoutInput) (model.OrderType, error) {
	if len(in.Items) == 0 {
		return "", NewHTTPError(KindValidation, "cart is empty")
	}
	for _, it := range in.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return "", NewHTTPError(KindValidation, "invalid product_id")
		}
		if !money.Quantity(it.Quantity).Valid() {
			return "", NewHTTPError(KindValidation, "invalid quantity")
		}
	}
	orderType, ok := model.ParseOrderType(strings.TrimSpace(in.OrderType))
	if !ok {
		return "", NewHTTPError(KindValidation, "invalid order_type")
	}
	return orderType, nil
}

// 入力が空ならアカウントの値で埋める
func orderSnapshot(c model.CustomerAccount, in CheckoutInput) model.Order {
	return model.Order{
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		Email:           firstNonEmpty(in.Email, c.Email),
		Region:          firstNonEmpty(in.Region, c.Region),
		City:            firstNonEmpty(in.City, c.City),
		PhoneNumber:     firstNonEmpty(in.PhoneNumber, c.PhoneNumber),
		ShippingAddress: firstNonEmpty(in.ShippingAddress, c.StreetAddress),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func (u *CheckoutUsecase) invalidate(ctx context.Context, customerID int64) {
	invalidateOrders(ctx, u.cache, u.log, customerID)
}

func (u *CheckoutUsecase) publish(ctx context.Context, o model.Order, typ model.OrderEventType) {
	publishOrderEvent(ctx, u.events, u.clock, u.log, o, typ)
}

func invalidateOrders(ctx context.Context, cache CacheInvalidator, log zerolog.Logger, customerID int64) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, UserOrdersCacheKey(customerID)); err != nil {
		log.Warn().Err(err).Int64("customer_id", customerID).Msg("orders cache invalidation failed")
	}
}

var eventPublishTimeout = 2 * time.Second

func publishOrderEvent(ctx context.Context, events EventPublisher, clock Clock, log zerolog.Logger, o model.Order, typ model.OrderEventType) {
	if events == nil {
		return
	}
	ev := model.OrderEvent{
		Type:       typ,
		OrderID:    o.ID,
		OrderCode:  o.OrderCode,
		CustomerID: o.CustomerID,
		Email:      o.Email,
		Reference:  o.Reference,
		Total:      money.Format(o.TotalAmount),
		OccurredAt: clock.Now().UTC(),
	}
	// 通知は応答を待たせない。リクエストのキャンセルとは切り離す
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()
	if err := events.Publish(pctx, ev); err != nil {
		log.Warn().Err(err).Str("order_id", o.ID).Str("event", string(typ)).Msg("order event publish failed")
	}
}
