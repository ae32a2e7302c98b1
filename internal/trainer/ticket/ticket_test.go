package ticket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	mgr := NewManager(Config{Secret: []byte("test-secret")})
	sessionID := uuid.New()

	ticket, err := mgr.Issue(sessionID, "plan-1", "Stina")
	require.NoError(t, err)

	claims, err := mgr.Validate(ticket)
	require.NoError(t, err)
	assert.Equal(t, sessionID, claims.SessionID)
	assert.Equal(t, "plan-1", claims.PlanID)
	assert.Equal(t, "Stina", claims.Player)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	ticket, err := NewManager(Config{Secret: []byte("secret-a")}).Issue(uuid.New(), "plan-1", "")
	require.NoError(t, err)

	_, err = NewManager(Config{Secret: []byte("secret-b")}).Validate(ticket)
	assert.ErrorIs(t, err, ErrInvalidTicket)
}

func TestValidateRejectsExpired(t *testing.T) {
	mgr := NewManager(Config{Secret: []byte("test-secret"), TTL: -time.Minute})
	ticket, err := mgr.Issue(uuid.New(), "plan-1", "")
	require.NoError(t, err)

	_, err = mgr.Validate(ticket)
	assert.ErrorIs(t, err, ErrExpiredTicket)
}

func TestValidateRejectsGarbage(t *testing.T) {
	mgr := NewManager(Config{Secret: []byte("test-secret")})
	_, err := mgr.Validate("not-a-ticket")
	assert.ErrorIs(t, err, ErrInvalidTicket)
}
