package store

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcasko/savepointapparel/internal/models"
)

func TestGetDashboardStats(t *testing.T) {
	s := newTestStore(t)

	paid := sampleOrder("cs_paid")
	require.NoError(t, s.CreateOrder(paid))
	require.NoError(t, s.SetFulfillmentID("cs_paid", "7421"))
	require.NoError(t, s.UpdateOrderStatus(paid.ID, models.OrderStatusShipped))

	// Paid but never fulfilled; needs manual follow-up.
	require.NoError(t, s.CreateOrder(sampleOrder("cs_stuck")))

	_, err := s.AddSubscriber("player1@example.com")
	require.NoError(t, err)

	stats, err := s.GetDashboardStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalOrders)
	assert.Equal(t, 1, stats.PendingOrders)
	assert.Equal(t, 1, stats.FulfilledOrders)
	assert.Equal(t, 1, stats.UnfulfilledPaid)
	// Revenue excludes only cancelled and refunded orders.
	assert.InDelta(t, 104.96, stats.TotalRevenue, 0.001)
	assert.Equal(t, 1, stats.NewsletterSignups)
}

func TestGetDashboardStats_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("disk I/O error"))

	s := &Store{DB: db}
	_, err = s.GetDashboardStats()
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTotalOrdersCount_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("database is locked"))

	s := &Store{DB: db}
	_, err = s.GetTotalOrdersCount()
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
