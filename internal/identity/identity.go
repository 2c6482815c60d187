// Package identity signs users in with email and password, registering new
// students on first sign-in, and resolves session tokens back to users.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/examportal/internal/model"
	"github.com/pavelanni/examportal/internal/store"
)

// MinPasswordLen is the shortest password the provider accepts.
const MinPasswordLen = 6

// Provider is the identity provider backed by the document store.
type Provider struct {
	st         *store.Store
	adminEmail string
	cost       int
}

// New creates a Provider. adminEmail is the only account allowed the admin role.
func New(st *store.Store, adminEmail string) *Provider {
	return &Provider{st: st, adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)), cost: bcrypt.DefaultCost}
}

// SetCost changes the bcrypt cost for newly hashed passwords.
func (p *Provider) SetCost(cost int) {
	p.cost = cost
}

// AdminEmail returns the configured admin address.
func (p *Provider) AdminEmail() string {
	return p.adminEmail
}

// CheckCredentials validates the format of an email and password pair and
// returns the normalized email.
func CheckCredentials(email, password string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		return "", &model.ValidationError{Field: "email", Reason: "is not a valid address"}
	}
	if len(password) < MinPasswordLen {
		return "", &model.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", MinPasswordLen)}
	}
	return strings.ToLower(email), nil
}

// SignIn authenticates email and password and opens a session. An unknown
// non-admin email is registered as a new student with that password.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*model.User, string, error) {
	email, err := CheckCredentials(email, password)
	if err != nil {
		return nil, "", err
	}

	u, err := p.st.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	switch {
	case u == nil && email == p.adminEmail:
		return nil, "", &model.AuthError{Code: model.AuthAdminNotFound}
	case u == nil:
		u, err = p.register(ctx, email, password, model.UserRoleStudent)
		if err != nil {
			return nil, "", err
		}
	default:
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
			return nil, "", &model.AuthError{Code: model.AuthWrongPassword}
		}
		if !u.Active {
			return nil, "", &model.AuthError{Code: model.AuthUserDisabled}
		}
	}
	if email == p.adminEmail && u.Role != model.UserRoleAdmin {
		return nil, "", &model.AuthError{Code: model.AuthInvalidCredentials}
	}

	token, err := p.st.CreateAuthSession(ctx, u.Email)
	if err != nil {
		return nil, "", err
	}
	slog.Info("signed in", "email", u.Email, "role", u.Role)
	return u, token, nil
}

func (p *Provider) register(ctx context.Context, email, password string, role model.UserRole) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{
		Email:        email,
		DisplayName:  localPart(email),
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	if err := p.st.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	if role == model.UserRoleStudent {
		err := p.st.UpsertStudent(ctx, model.Student{Email: email, Name: u.DisplayName})
		if err != nil {
			return nil, fmt.Errorf("create student profile: %w", err)
		}
	}
	return p.st.GetUserByEmail(ctx, email)
}

// EnsureAdmin creates the admin account if it does not exist yet.
func (p *Provider) EnsureAdmin(ctx context.Context, password string) (bool, error) {
	if p.adminEmail == "" {
		return false, &model.ValidationError{Field: "admin-email", Reason: "is not configured"}
	}
	email, err := CheckCredentials(p.adminEmail, password)
	if err != nil {
		return false, err
	}
	u, err := p.st.GetUserByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if u != nil {
		return false, nil
	}
	if _, err := p.register(ctx, email, password, model.UserRoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}

// Authenticate resolves a session token to its active user.
func (p *Provider) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, &model.AuthError{Code: model.AuthSessionExpired}
	}
	sess, err := p.st.GetAuthSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, &model.AuthError{Code: model.AuthSessionExpired}
	}
	u, err := p.st.GetUserByEmail(ctx, sess.Email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &model.AuthError{Code: model.AuthUserNotFound}
	}
	if !u.Active {
		return nil, &model.AuthError{Code: model.AuthUserDisabled}
	}
	return u, nil
}

// SignOut ends the session of token.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return p.st.DeleteAuthSession(ctx, token)
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
