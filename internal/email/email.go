package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/kcasko/savepointapparel/internal/models"
)

// ErrNotConfigured marks a skipped send due to missing SMTP settings.
// Callers log it and move on; email is never allowed to interrupt the
// fulfillment pipeline.
var ErrNotConfigured = errors.New("email transport not configured")

type Sender struct {
	dialer  *gomail.Dialer
	from    string
	siteURL string
}

// NewSender returns a Sender; with incomplete SMTP settings the sender is
// still usable but every send returns ErrNotConfigured.
func NewSender(host string, port int, user, password, from, siteURL string) *Sender {
	s := &Sender{from: from, siteURL: siteURL}
	if host != "" && user != "" && password != "" {
		s.dialer = gomail.NewDialer(host, port, user, password)
	}
	return s
}

// SendConfirmation emails the customer an order confirmation with both a
// styled HTML body and a plaintext alternative.
func (s *Sender) SendConfirmation(order *models.Order) error {
	if s.dialer == nil {
		return ErrNotConfigured
	}

	htmlBody, err := renderHTML(order, s.siteURL)
	if err != nil {
		return fmt.Errorf("render confirmation email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, "Save Point Apparel")
	m.SetHeader("To", order.CustomerEmail)
	m.SetHeader("Subject", "Order Confirmation - "+order.StripeSessionID)
	m.SetBody("text/plain", renderText(order))
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	return nil
}

var htmlTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; background-color: #1a1a1a; color: #ffffff; margin: 0; padding: 0; }
.container { max-width: 600px; margin: 0 auto; background-color: #2a2a2a; padding: 40px; }
.header { text-align: center; border-bottom: 3px solid #00ffff; padding-bottom: 20px; margin-bottom: 30px; }
.logo { font-size: 32px; font-weight: bold; color: #00ffff; }
.section { margin: 20px 0; }
.section-title { color: #00ffff; font-size: 18px; font-weight: bold; margin-bottom: 10px; text-transform: uppercase; }
table { width: 100%; border-collapse: collapse; margin: 15px 0; }
th { background-color: #333; color: #00ffff; padding: 12px; text-align: left; }
td { padding: 12px; border-bottom: 1px solid #333; color: #ffffff; }
.total { font-size: 24px; font-weight: bold; color: #00ffff; text-align: right; margin-top: 20px; }
.footer { text-align: center; margin-top: 40px; padding-top: 20px; border-top: 2px solid #333; color: #888; font-size: 12px; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <div class="logo">SAVE POINT APPAREL</div>
    <p style="color: #888; margin: 10px 0 0 0;">Order Confirmation</p>
  </div>
  <p>Hey {{.Order.CustomerName}}!</p>
  <p>Thanks for your order! Your retro gaming gear is on its way!</p>
  <div class="section">
    <div class="section-title">Order Details</div>
    <p><strong>Order Number:</strong> {{.Order.StripeSessionID}}</p>
    <table>
      <thead>
        <tr><th>Item</th><th style="text-align: center;">Quantity</th><th style="text-align: right;">Price</th></tr>
      </thead>
      <tbody>
        {{range .Order.Items}}<tr><td>{{.ProductName}}</td><td style="text-align: center;">{{.Quantity}}</td><td style="text-align: right;">${{printf "%.2f" .Price}}</td></tr>
        {{end}}
      </tbody>
    </table>
    <div class="total">Total: ${{printf "%.2f" .Order.TotalAmount}}</div>
  </div>
  <div class="section">
    <div class="section-title">Shipping Address</div>
    <p>
      {{.Order.ShippingAddress.Name}}<br>
      {{.Order.ShippingAddress.Address1}}<br>
      {{if .Order.ShippingAddress.Address2}}{{.Order.ShippingAddress.Address2}}<br>{{end}}
      {{.Order.ShippingAddress.City}}, {{.Order.ShippingAddress.StateCode}} {{.Order.ShippingAddress.Zip}}<br>
      {{.Order.ShippingAddress.CountryCode}}
    </p>
  </div>
  <div class="section">
    <div class="section-title">What's Next?</div>
    <p>Your order is being prepared for shipment</p>
    <p>You'll receive a tracking number within 24-48 hours</p>
    <p>Estimated delivery: 5-7 business days</p>
  </div>
  <div class="footer">
    <p>Questions? Reply to this email or contact us at support@savepointapparel.com</p>
    <p>Shop again: {{.SiteURL}}/shop</p>
  </div>
</div>
</body>
</html>
`))

func renderHTML(order *models.Order, siteURL string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Order   *models.Order
		SiteURL string
	}{order, siteURL}
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderText(order *models.Order) string {
	var b strings.Builder
	b.WriteString("ORDER CONFIRMATION - SAVE POINT APPAREL\n\n")
	fmt.Fprintf(&b, "Hey %s!\n\n", order.CustomerName)
	b.WriteString("Thanks for your order! Your retro gaming gear is on its way!\n\n")
	fmt.Fprintf(&b, "Order Number: %s\n\nITEMS:\n", order.StripeSessionID)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "%s x%d - $%.2f\n", item.ProductName, item.Quantity, item.Price)
	}
	fmt.Fprintf(&b, "\nTOTAL: $%.2f\n\nSHIPPING ADDRESS:\n", order.TotalAmount)
	addr := order.ShippingAddress
	fmt.Fprintf(&b, "%s\n%s\n", addr.Name, addr.Address1)
	if addr.Address2 != "" {
		fmt.Fprintf(&b, "%s\n", addr.Address2)
	}
	fmt.Fprintf(&b, "%s, %s %s\n%s\n", addr.City, addr.StateCode, addr.Zip, addr.CountryCode)
	b.WriteString("\nQuestions? Reply to this email or contact us at support@savepointapparel.com\n")
	return b.String()
}
