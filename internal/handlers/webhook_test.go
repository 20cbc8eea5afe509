package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/kcasko/savepointapparel/internal/email"
	"github.com/kcasko/savepointapparel/internal/models"
	"github.com/kcasko/savepointapparel/internal/store"
)

const testWebhookSecret = "whsec_test_secret"

// stubGateway does real signature verification against a test secret and
// serves a canned session instead of calling Stripe.
type stubGateway struct {
	session       *stripe.CheckoutSession
	retrieveErr   error
	retrieveCalls int
}

func (g *stubGateway) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, testWebhookSecret)
}

func (g *stubGateway) RetrieveSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	g.retrieveCalls++
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	return g.session, nil
}

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Submit(ctx context.Context, order *models.Order) (string, error) {
	args := m.Called(ctx, order)
	return args.String(0), args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendConfirmation(order *models.Order) error {
	return m.Called(order).Error(0)
}

func newWebhookTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate("../../migrations"))
	return s
}

func signedRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	sig := fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", sig)
	return req
}

func completedEventPayload(sessionID string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_1","object":"event","api_version":%q,"type":"checkout.session.completed","data":{"object":{"id":%q,"object":"checkout.session"}}}`,
		stripe.APIVersion, sessionID))
}

func completedSession(id string) *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:            id,
		AmountTotal:   5248,
		Currency:      stripe.CurrencyUSD,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
			Email: "player1@example.com",
			Name:  "Player One",
			Phone: "+15125550100",
		},
		ShippingDetails: &stripe.ShippingDetails{
			Name: "Player One",
			Address: &stripe.Address{
				Line1: "123 Arcade Ave", City: "Austin", State: "TX",
				Country: "US", PostalCode: "78701",
			},
		},
		LineItems: &stripe.LineItemList{
			Data: []*stripe.LineItem{
				{
					Description: "Retro Gaming Hoodie - Small",
					Quantity:    2,
					Price: &stripe.Price{
						UnitAmount: 2499,
						Product: &stripe.Product{
							Metadata: map[string]string{"product_id": "101", "sync_variant_id": "5"},
						},
					},
				},
				{
					Description: "Bubble-free Stickers",
					Quantity:    1,
					Price: &stripe.Price{
						UnitAmount: 250,
						Product:    &stripe.Product{Metadata: map[string]string{"product_id": "202"}},
					},
				},
			},
		},
	}
}

func TestHandleStripeEvent_BadSignature(t *testing.T) {
	s := newWebhookTestStore(t)
	h := &WebhookHandler{Payments: &stubGateway{}, Fulfillment: &mockSubmitter{}, Mailer: &mockMailer{}, Store: s}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(completedEventPayload("cs_test_1")))
	req.Header.Set("Stripe-Signature", "t=123,v1=deadbeef")
	rec := httptest.NewRecorder()
	h.HandleStripeEvent(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	count, err := s.GetTotalOrdersCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHandleStripeEvent_CompletedSessionCreatesOrder(t *testing.T) {
	s := newWebhookTestStore(t)
	gateway := &stubGateway{session: completedSession("cs_test_1")}
	submitter := &mockSubmitter{}
	submitter.On("Submit", mock.Anything, mock.Anything).Return("7421", nil).Once()
	mailer := &mockMailer{}
	mailer.On("SendConfirmation", mock.Anything).Return(nil).Once()

	h := &WebhookHandler{Payments: gateway, Fulfillment: submitter, Mailer: mailer, Store: s}

	rec := httptest.NewRecorder()
	h.HandleStripeEvent(rec, signedRequest(t, completedEventPayload("cs_test_1")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received": true}`, rec.Body.String())

	order, err := s.GetOrderBySessionID("cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, "player1@example.com", order.CustomerEmail)
	assert.Equal(t, "Player One", order.CustomerName)
	assert.Equal(t, 52.48, order.TotalAmount)
	assert.Equal(t, "paid", order.PaymentStatus)
	assert.Equal(t, "7421", order.PrintfulOrderID)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)

	require.Len(t, order.Items, 2)
	assert.Equal(t, "101", order.Items[0].ProductID)
	assert.Equal(t, int64(5), order.Items[0].SyncVariantID)
	assert.Equal(t, 24.99, order.Items[0].Price)
	assert.Equal(t, "TX", order.ShippingAddress.StateCode)

	submitter.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestHandleStripeEvent_DuplicateDeliveryIsIdempotent(t *testing.T) {
	s := newWebhookTestStore(t)
	gateway := &stubGateway{session: completedSession("cs_test_1")}
	submitter := &mockSubmitter{}
	submitter.On("Submit", mock.Anything, mock.Anything).Return("7421", nil).Once()
	mailer := &mockMailer{}
	mailer.On("SendConfirmation", mock.Anything).Return(nil).Once()

	h := &WebhookHandler{Payments: gateway, Fulfillment: submitter, Mailer: mailer, Store: s}

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.HandleStripeEvent(rec, signedRequest(t, completedEventPayload("cs_test_1")))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	count, err := s.GetTotalOrdersCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	// The redelivery short-circuits before touching Stripe again.
	assert.Equal(t, 1, gateway.retrieveCalls)
	submitter.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestHandleStripeEvent_MissingEmailAcksWithoutOrder(t *testing.T) {
	session := completedSession("cs_test_1")
	session.CustomerDetails = nil

	s := newWebhookTestStore(t)
	submitter := &mockSubmitter{}
	h := &WebhookHandler{Payments: &stubGateway{session: session}, Fulfillment: submitter, Mailer: &mockMailer{}, Store: s}

	rec := httptest.NewRecorder()
	h.HandleStripeEvent(rec, signedRequest(t, completedEventPayload("cs_test_1")))

	assert.Equal(t, http.StatusOK, rec.Code)
	count, err := s.GetTotalOrdersCount()
	require.NoError(t, err)
	assert.Zero(t, count)
	submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestHandleStripeEvent_MissingShippingAcksWithoutOrder(t *testing.T) {
	session := completedSession("cs_test_1")
	session.ShippingDetails = nil

	s := newWebhookTestStore(t)
	h := &WebhookHandler{Payments: &stubGateway{session: session}, Fulfillment: &mockSubmitter{}, Mailer: &mockMailer{}, Store: s}

	rec := httptest.NewRecorder()
	h.HandleStripeEvent(rec, signedRequest(t, completedEventPayload("cs_test_1")))

	assert.Equal(t, http.StatusOK, rec.Code)
	count, err := s.GetTotalOrdersCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHandleStripeEvent_RetrieveFailureReturns500(t *testing.T) {
	s := newWebhookTestStore(t)
	h := &WebhookHandler{
		Payments:    &stubGateway{retrieveErr: fmt.Errorf("stripe unavailable")},
		Fulfillment: &mockSubmitter{},
		Mailer:      &mockMailer{},
		Store:       s,
	}

	rec := httptest.NewRecorder()
	h.HandleStripeEvent(rec, signedRequest(t, completedEventPayload("cs_test_1")))

	// 500 makes Stripe redeliver; nothing durable exists yet.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	count, err := s.GetTotalOrdersCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHandleStripeEvent_FulfillmentFailureStillAcks(t *testing.T) {
	s := newWebhookTestStore(t)
	submitter := &mockSubmitter{}
	submitter.On("Submit", mock.Anything, mock.Anything).Return("", fmt.Errorf("printful down")).Once()
	mailer := &mockMailer{}
	mailer.On("SendConfirmation", mock.Anything).Return(email.ErrNotConfigured).Once()

	h := &WebhookHandler{Payments: &stubGateway{session: completedSession("cs_test_1")}, Fulfillment: submitter, Mailer: mailer, Store: s}

	rec := httptest.NewRecorder()
	h.HandleStripeEvent(rec, signedRequest(t, completedEventPayload("cs_test_1")))

	assert.Equal(t, http.StatusOK, rec.Code)

	order, err := s.GetOrderBySessionID("cs_test_1")
	require.NoError(t, err)
	assert.Empty(t, order.PrintfulOrderID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	submitter.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestHandleStripeEvent_OtherEventTypesAcked(t *testing.T) {
	s := newWebhookTestStore(t)
	h := &WebhookHandler{Payments: &stubGateway{}, Fulfillment: &mockSubmitter{}, Mailer: &mockMailer{}, Store: s}

	payload := []byte(fmt.Sprintf(
		`{"id":"evt_2","object":"event","api_version":%q,"type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`,
		stripe.APIVersion))

	rec := httptest.NewRecorder()
	h.HandleStripeEvent(rec, signedRequest(t, payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received": true}`, rec.Body.String())
}
