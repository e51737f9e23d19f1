package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/faculty-scheduler-api/pkg/errors"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	svc := NewTokenService("secret")

	token, err := svc.Issue("approver-1", models.RoleApprover, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "approver-1", claims.UserID)
	assert.Equal(t, models.RoleApprover, claims.Role)
	assert.Equal(t, "approver-1", claims.Subject)
}

func TestTokenServiceRejectsExpiredAndForeignTokens(t *testing.T) {
	svc := NewTokenService("secret")
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := svc.Issue("user-1", models.RoleStaff, time.Hour)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(expired)
	requireAppError(t, err, appErrors.ErrUnauthorized)

	foreign, err := NewTokenService("other-secret").Issue("user-1", models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	requireAppError(t, err, appErrors.ErrUnauthorized)

	_, err = svc.Issue(" ", models.RoleStaff, time.Hour)
	requireAppError(t, err, appErrors.ErrValidation)
}
