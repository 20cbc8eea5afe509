package store

import (
	"strings"
)

// AddSubscriber stores a newsletter signup. Returns (false, nil) when the
// email is already subscribed; emails are stored lowercased so the unique
// index is effectively case-insensitive.
func (s *Store) AddSubscriber(email string) (bool, error) {
	_, err := s.DB.Exec(`INSERT INTO newsletter_subscribers (email, created_at) VALUES (?, CURRENT_TIMESTAMP)`,
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) GetSubscriberCount() (int, error) {
	var count int
	err := s.DB.QueryRow(`SELECT COUNT(*) FROM newsletter_subscribers`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
