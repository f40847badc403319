// Package email renders and sends order-confirmation emails.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/ninehub/storefront/internal/observability"
	"github.com/ninehub/storefront/models"
	"go.uber.org/zap"
)

// Message is a rendered email ready for delivery
type Message struct {
	FromName string
	From     string
	To       string
	Subject  string
	HTMLBody string
}

// Mailer delivers a message
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

var orderTemplate = template.Must(template.New("order").Parse(
	`<h2>Thank you for your purchase, {{.CustomerName}}!</h2>` +
		`<p>Your order has been confirmed.</p>` +
		`<h3>Your Bill:</h3>` +
		`<ul>{{range .Items}}<li>{{.Name}} x {{.Quantity}} = ₹{{printf "%.2f" .LineTotal}}</li>{{end}}</ul>` +
		`<h3>Total Amount: ₹{{printf "%.2f" .TotalAmount}}</h3>` +
		`<p>We’ll notify you once it's shipped.</p>` +
		`<p><strong>- Your Store Team</strong></p>`,
))

// RenderOrderBody renders the HTML bill for an order
func RenderOrderBody(req *models.OrderEmailRequest) (string, error) {
	var buf bytes.Buffer
	if err := orderTemplate.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("failed to render order email: %w", err)
	}
	return buf.String(), nil
}

// OrderSubject returns the subject line for an order confirmation
func OrderSubject(orderID string) string {
	return "Order Confirmation - Order #" + orderID
}

// OrderEmailService sends order-confirmation emails through a Mailer
type OrderEmailService struct {
	mailer   Mailer
	from     string
	fromName string
	logger   *zap.Logger
}

// NewOrderEmailService creates a new OrderEmailService instance
func NewOrderEmailService(mailer Mailer, from, fromName string, logger *zap.Logger) *OrderEmailService {
	return &OrderEmailService{
		mailer:   mailer,
		from:     from,
		fromName: fromName,
		logger:   logger,
	}
}

// SendOrderEmail renders and delivers the confirmation. Delivery is attempted once.
func (s *OrderEmailService) SendOrderEmail(ctx context.Context, req *models.OrderEmailRequest) error {
	body, err := RenderOrderBody(req)
	if err != nil {
		observability.OrderEmailsTotal.WithLabelValues("failed").Inc()
		return err
	}

	msg := &Message{
		FromName: s.fromName,
		From:     s.from,
		To:       req.To,
		Subject:  OrderSubject(req.OrderID),
		HTMLBody: body,
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		observability.OrderEmailsTotal.WithLabelValues("failed").Inc()
		s.logger.Error("order email delivery failed",
			zap.String("order_id", req.OrderID),
			zap.Error(err))
		return err
	}

	observability.OrderEmailsTotal.WithLabelValues("sent").Inc()
	s.logger.Info("order email sent", zap.String("order_id", req.OrderID))
	return nil
}
