package store

import (
	"github.com/kcasko/savepointapparel/internal/models"
)

type DashboardStats struct {
	TotalOrders       int
	PendingOrders     int
	FulfilledOrders   int
	UnfulfilledPaid   int
	TotalRevenue      float64
	NewsletterSignups int
}

// GetDashboardStats aggregates the admin dashboard counters. UnfulfilledPaid
// counts paid orders that never received a Printful order id and need manual
// follow-up.
func (s *Store) GetDashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{}

	err := s.DB.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN printful_order_id IS NOT NULL AND printful_order_id != '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN (printful_order_id IS NULL OR printful_order_id = '') AND payment_status = 'paid' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status != ? AND status != ? THEN total_amount ELSE 0 END), 0)
		FROM orders
	`, models.OrderStatusPending, models.OrderStatusCancelled, models.OrderStatusRefunded).Scan(
		&stats.TotalOrders, &stats.PendingOrders, &stats.FulfilledOrders, &stats.UnfulfilledPaid, &stats.TotalRevenue)
	if err != nil {
		return nil, err
	}

	if stats.NewsletterSignups, err = s.GetSubscriberCount(); err != nil {
		return nil, err
	}

	return stats, nil
}
