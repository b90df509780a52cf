package usecase

import (
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/domain/money"
)

type OrderItemOutput struct {
	ProductID       *string `json:"product_id"`
	Quantity        int64   `json:"quantity"`
	PriceAtPurchase string  `json:"price_at_purchase"`
	LineTotal       string  `json:"line_total"`
}

type PaymentOutput struct {
	Reference string     `json:"reference"`
	Status    string     `json:"status"`
	Amount    int64      `json:"amount"`
	PaidAt    *time.Time `json:"paid_at"`
}

type OrderOutput struct {
	ID              string            `json:"id"`
	OrderCode       string            `json:"order_code"`
	CustomerID      int64             `json:"customer_id"`
	Status          string            `json:"status"`
	OrderType       string            `json:"order_type"`
	TotalAmount     string            `json:"total_amount"`
	Reference       string            `json:"reference"`
	FirstName       string            `json:"first_name"`
	LastName        string            `json:"last_name"`
	Email           string            `json:"email"`
	Region          string            `json:"region"`
	City            string            `json:"city"`
	PhoneNumber     string            `json:"phone_number"`
	ShippingAddress string            `json:"shipping_address"`
	CreatedAt       time.Time         `json:"created_at"`
	Items           []OrderItemOutput `json:"items"`
	Payment         *PaymentOutput    `json:"payment"`
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			PriceAtPurchase: money.Format(it.PriceAtPurchase),
			LineTotal:       money.Format(money.LineTotal(it.PriceAtPurchase, money.Quantity(it.Quantity))),
		})
	}

	var payment *PaymentOutput
	if o.Payment != nil {
		payment = &PaymentOutput{
			Reference: o.Payment.Reference,
			Status:    string(o.Payment.Status),
			Amount:    o.Payment.Amount,
			PaidAt:    o.Payment.PaidAt,
		}
	}

	return OrderOutput{
		ID:              o.ID,
		OrderCode:       o.OrderCode,
		CustomerID:      o.CustomerID,
		Status:          string(o.Status),
		OrderType:       string(o.OrderType),
		TotalAmount:     money.Format(o.TotalAmount),
		Reference:       o.Reference,
		FirstName:       o.FirstName,
		LastName:        o.LastName,
		Email:           o.Email,
		Region:          o.Region,
		City:            o.City,
		PhoneNumber:     o.PhoneNumber,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		Items:           outItems,
		Payment:         payment,
	}
}
