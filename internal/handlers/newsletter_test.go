package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubSubscriberStore struct {
	added    bool
	err      error
	gotEmail string
}

func (s *stubSubscriberStore) AddSubscriber(email string) (bool, error) {
	s.gotEmail = email
	return s.added, s.err
}

func postNewsletter(h *NewsletterHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/newsletter", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Subscribe(rec, req)
	return rec
}

func TestSubscribe(t *testing.T) {
	store := &stubSubscriberStore{added: true}
	h := &NewsletterHandler{Store: store}

	rec := postNewsletter(h, `{"email": " Player1@Example.com "}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thanks for subscribing!")
	assert.Equal(t, "player1@example.com", store.gotEmail)
}

func TestSubscribe_AlreadySubscribed(t *testing.T) {
	h := &NewsletterHandler{Store: &stubSubscriberStore{added: false}}

	rec := postNewsletter(h, `{"email": "player1@example.com"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already subscribed")
}

func TestSubscribe_Validation(t *testing.T) {
	h := &NewsletterHandler{Store: &stubSubscriberStore{}}

	for _, body := range []string{
		`{}`,
		`{"email": ""}`,
		`{"email": "not-an-email"}`,
		`{"email": "missing@tld"}`,
		`not json`,
	} {
		rec := postNewsletter(h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
}

func TestSubscribe_StoreError(t *testing.T) {
	h := &NewsletterHandler{Store: &stubSubscriberStore{err: fmt.Errorf("disk I/O error")}}

	rec := postNewsletter(h, `{"email": "player1@example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
