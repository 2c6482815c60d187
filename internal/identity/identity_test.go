package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/examportal/internal/model"
	"github.com/pavelanni/examportal/internal/store"
)

const adminEmail = "admin@gmail.com"

func newProvider(t *testing.T) (*Provider, *store.Store) {
	t.Helper()
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	p := New(st, adminEmail)
	p.SetCost(bcrypt.MinCost)
	return p, st
}

func authCode(t *testing.T, err error) string {
	t.Helper()
	var aerr *model.AuthError
	require.ErrorAs(t, err, &aerr)
	return aerr.Code
}

func TestCheckCredentials(t *testing.T) {
	tests := []struct {
		email, password string
		field           string
	}{
		{"not-an-email", "secret1", "email"},
		{"Ann <ann@example.com>", "secret1", "email"},
		{"", "secret1", "email"},
		{"ann@example.com", "12345", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.email+"/"+tt.field, func(t *testing.T) {
			_, err := CheckCredentials(tt.email, tt.password)
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	email, err := CheckCredentials("  Ann@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", email)
}

func TestSignInRegistersStudent(t *testing.T) {
	p, st := newProvider(t)
	ctx := context.Background()

	u, token, err := p.SignIn(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, model.UserRoleStudent, u.Role)
	assert.Equal(t, "ann", u.DisplayName)

	student, err := st.GetStudent(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ann", student.Name)
	assert.False(t, student.CreatedAt.IsZero())

	_, _, err = p.SignIn(ctx, "ann@example.com", "wrong-password")
	assert.Equal(t, model.AuthWrongPassword, authCode(t, err))

	again, _, err := p.SignIn(ctx, "ANN@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.Email, again.Email)
}

func TestSignInAdmin(t *testing.T) {
	p, _ := newProvider(t)
	ctx := context.Background()

	_, _, err := p.SignIn(ctx, adminEmail, "adminpass")
	assert.Equal(t, model.AuthAdminNotFound, authCode(t, err), "admin is never auto-registered")

	created, err := p.EnsureAdmin(ctx, "adminpass")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = p.EnsureAdmin(ctx, "adminpass")
	require.NoError(t, err)
	assert.False(t, created)

	u, _, err := p.SignIn(ctx, adminEmail, "adminpass")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
	assert.Equal(t, model.AdminID, u.ChatID())
}

func TestSignInDisabled(t *testing.T) {
	p, st := newProvider(t)
	ctx := context.Background()
	_, _, err := p.SignIn(ctx, "bob@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, st.SetUserActive(ctx, "bob@example.com", false))

	_, _, err = p.SignIn(ctx, "bob@example.com", "secret1")
	assert.Equal(t, model.AuthUserDisabled, authCode(t, err))
}

func TestAuthenticate(t *testing.T) {
	p, st := newProvider(t)
	ctx := context.Background()
	_, token, err := p.SignIn(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)

	u, err := p.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)

	_, err = p.Authenticate(ctx, "bogus")
	assert.Equal(t, model.AuthSessionExpired, authCode(t, err))

	require.NoError(t, st.SetUserActive(ctx, "ann@example.com", false))
	_, err = p.Authenticate(ctx, token)
	assert.Equal(t, model.AuthUserDisabled, authCode(t, err))

	require.NoError(t, p.SignOut(ctx, token))
	_, err = p.Authenticate(ctx, token)
	assert.Equal(t, model.AuthSessionExpired, authCode(t, err))
}
