package models

// OrderEmailRequest is the payload of an order-confirmation email.
// JSON names follow the storefront frontend.
type OrderEmailRequest struct {
	To           string      `json:"to" validate:"required,email"`
	CustomerName string      `json:"customerName" validate:"required"`
	Items        []OrderItem `json:"items" validate:"dive"`
	TotalAmount  float64     `json:"totalAmount" validate:"gte=0"`
	OrderID      string      `json:"orderId" validate:"required"`
}

// OrderItem is a single line of the bill
type OrderItem struct {
	Name     string  `json:"name" validate:"required"`
	Quantity int     `json:"quantity" validate:"gte=1"`
	Price    float64 `json:"price" validate:"gte=0"`
}

// LineTotal returns price multiplied by quantity
func (i OrderItem) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}
