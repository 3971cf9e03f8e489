package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/smartexam/smartexam/internal/model"
)

const authSessionTTL = 24 * time.Hour

// CreateAuthSession creates a new admin auth session token.
func (s *Store) CreateAuthSession() (*model.AuthSession, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	sess := model.AuthSession{
		ID:        token,
		CreatedAt: now,
		ExpiresAt: now.Add(authSessionTTL),
	}
	_, err = s.db.Exec(
		`INSERT INTO auth_sessions (id, created_at, expires_at) VALUES (?, ?, ?)`,
		sess.ID, sess.CreatedAt, sess.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetAuthSession returns the auth session for the given token, or nil if not
// found or expired.
func (s *Store) GetAuthSession(token string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := s.db.QueryRow(
		`SELECT id, created_at, expires_at FROM auth_sessions WHERE id = ?`, token,
	).Scan(&sess.ID, &sess.CreatedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.DeleteAuthSession(token)
		return nil, nil
	}
	return &sess, nil
}

// DeleteAuthSession removes a session token.
func (s *Store) DeleteAuthSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

// CleanupExpiredSessions removes all expired auth sessions.
func (s *Store) CleanupExpiredSessions() error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at < ?`, time.Now())
	return err
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
