// Package ticket issues and validates signed resume tickets. A ticket lets a
// reloaded browser tab reattach to its running lesson session without any
// account machinery.
package ticket

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by a resume ticket.
type Claims struct {
	SessionID uuid.UUID `json:"session_id"`
	PlanID    string    `json:"plan_id"`
	Player    string    `json:"player,omitempty"`
	jwt.RegisteredClaims
}

var (
	ErrInvalidTicket = errors.New("invalid ticket")
	ErrExpiredTicket = errors.New("ticket expired")
)

// Config holds ticket signing configuration.
type Config struct {
	Secret []byte
	TTL    time.Duration // default: 24 hours
	Issuer string
}

// Manager signs and validates resume tickets.
type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewManager creates a ticket manager.
func NewManager(cfg Config) *Manager {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "uttala"
	}
	return &Manager{
		secret: cfg.Secret,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
	}
}

// Issue signs a ticket for a running session.
func (m *Manager) Issue(sessionID uuid.UUID, planID, player string) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sessionID,
		PlanID:    planID,
		Player:    player,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   sessionID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses a ticket and returns its claims.
func (m *Manager) Validate(ticket string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(ticket, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidTicket
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredTicket
		}
		return nil, ErrInvalidTicket
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidTicket
	}
	return claims, nil
}
