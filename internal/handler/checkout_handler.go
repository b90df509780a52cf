package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	checkout *usecase.CheckoutUsecase
	payments *usecase.PaymentUsecase
}

func NewCheckoutHandler(checkout *usecase.CheckoutUsecase, payments *usecase.PaymentUsecase) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, payments: payments}
}

type cartItemProduct struct {
	ID string `json:"id"`
}

// product_id でも product.id でも受け付ける
type CheckoutCartItemRequest struct {
	ProductID string           `json:"product_id"`
	Product   *cartItemProduct `json:"product"`
	Quantity  int64            `json:"quantity"`
}

func (r CheckoutCartItemRequest) productID() string {
	if r.ProductID != "" {
		return r.ProductID
	}
	if r.Product != nil {
		return r.Product.ID
	}
	return ""
}

type CheckoutRequest struct {
	CartItems       []CheckoutCartItemRequest `json:"cart_items"`
	OrderType       string                    `json:"order_type"`
	CouponCode      string                    `json:"coupon_code"`
	FirstName       string                    `json:"first_name"`
	LastName        string                    `json:"last_name"`
	Email           string                    `json:"email"`
	Region          string                    `json:"region"`
	City            string                    `json:"city"`
	PhoneNumber     string                    `json:"phone_number"`
	ShippingAddress string                    `json:"shipping_address"`
}

type ReferenceRequest struct {
	Reference string `json:"reference"`
}

func (h *CheckoutHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/checkout", h.create)
	g.POST("/checkout/verify", h.verify)
	g.POST("/checkout_via_reference", h.payViaReference)
	g.POST("/checkout/pay_via_reference", h.payViaReference)
}

func (h *CheckoutHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	items := make([]usecase.CheckoutItemInput, 0, len(req.CartItems))
	for _, it := range req.CartItems {
		items = append(items, usecase.CheckoutItemInput{ProductID: it.productID(), Quantity: it.Quantity})
	}

	out, err := h.checkout.Checkout(c.Request().Context(), userID, usecase.CheckoutInput{
		Items:           items,
		OrderType:       req.OrderType,
		CouponCode:      req.CouponCode,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Region:          req.Region,
		City:            req.City,
		PhoneNumber:     req.PhoneNumber,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CheckoutHandler) verify(c echo.Context) error {
	if _, ok := getUserIDFromContext(c); !ok {
		return unauthorized(c)
	}

	var req ReferenceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.payments.Verify(c.Request().Context(), req.Reference)
	if err != nil {
		return writeError(c, err)
	}
	//失敗ステータスは 400 + can_pay_again
	if !out.Paid {
		return c.JSON(http.StatusBadRequest, out)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CheckoutHandler) payViaReference(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req ReferenceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.payments.PayViaReference(c.Request().Context(), userID, req.Reference)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}
