package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/natefinch/atomic"
)

var ErrNoSession = errors.New("not logged in, run `lyt login --token <jwt>`")

// Session est persistée en JSON, réécrite atomiquement.
type Session struct {
	Token   string    `json:"token"`
	UserID  string    `json:"user_id"`
	SavedAt time.Time `json:"saved_at"`
}

// NewSession lit l'utilisateur dans le jeton. La signature n'est pas vérifiée
// ici : c'est le rôle de l'interaction-service.
func NewSession(token string, now time.Time) (Session, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Session{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return Session{}, errors.New("token has no subject")
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(now) {
		return Session{}, errors.New("token is expired")
	}
	return Session{Token: token, UserID: claims.Subject, SavedAt: now.UTC()}, nil
}

func LoadSession(path string) (Session, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if s.UserID == "" || s.Token == "" {
		return Session{}, ErrNoSession
	}
	return s, nil
}

func SaveSession(path string, s Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Chmod(path, 0o600)
}

func DeleteSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
