package store

import (
	"database/sql"
	"errors"

	"github.com/kcasko/savepointapparel/internal/models"
)

func (s *Store) CreateUser(username, hashedPassword string) error {
	_, err := s.DB.Exec(`INSERT INTO users (username, password) VALUES (?, ?)`, username, hashedPassword)
	return err
}

// GetUserByUsername returns (nil, nil) for an unknown username so callers
// can distinguish "no such user" from a query failure.
func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	row := s.DB.QueryRow(`SELECT id, username, password FROM users WHERE username = ?`, username)

	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Password); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
