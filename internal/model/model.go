package model

import (
	"context"
	"time"
)

// AdminID is the identity key the admin uses in chat and presence documents.
const AdminID = "admin"

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User is an identity provider account.
type User struct {
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"passwordHash"`
	Role         UserRole  `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}

// ChatID is the identity the user appears under in chat and presence documents.
func (u *User) ChatID() string {
	if u.IsAdmin() {
		return AdminID
	}
	return u.Email
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string    `json:"-"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Student is the public profile of a registered student.
type Student struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayName falls back to the email when no name was recorded.
func (s Student) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Email
}

// NumOptions is the fixed number of options every question carries.
const NumOptions = 4

// OptionLabels are the letters shown next to options, in index order.
var OptionLabels = [NumOptions]string{"A", "B", "C", "D"}

// Question is a multiple-choice question embedded in a Test.
type Question struct {
	Text        string             `json:"question"`
	Options     [NumOptions]string `json:"options"`
	Answer      int                `json:"answer"`
	Explanation string             `json:"explanation"`
}

// Test is an admin-authored question bank with marking rules.
type Test struct {
	ID           string     `json:"-"`
	Title        string     `json:"title"`
	PositiveMark float64    `json:"positiveMark"`
	NegativeMark float64    `json:"negativeMark"`
	Duration     int        `json:"duration"` // minutes
	Instructions string     `json:"instructions"`
	Questions    []Question `json:"questions"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// AnswerKey returns the correct option index of every question in order.
func (t *Test) AnswerKey() []int {
	key := make([]int, len(t.Questions))
	for i, q := range t.Questions {
		key[i] = q.Answer
	}
	return key
}

// Result is the persisted outcome of one submitted exam session.
type Result struct {
	ID           string    `json:"-"`
	StudentEmail string    `json:"studentEmail"`
	StudentName  string    `json:"studentName"`
	TestID       string    `json:"testId"`
	TestTitle    string    `json:"testTitle"`
	Score        float64   `json:"score"`
	Correct      int       `json:"correct"`
	Incorrect    int       `json:"incorrect"`
	NotAttempted int       `json:"notAttempted"`
	Answers      []*int    `json:"answers"`
	SubmittedAt  time.Time `json:"submittedAt"`
	Timestamp    int64     `json:"timestamp"` // unix milliseconds
	TimeTaken    string    `json:"timeTaken"` // mm:ss
}

// ChatMessage is one message of the two-party admin/student conversation.
type ChatMessage struct {
	ID           string    `json:"-"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Participants []string  `json:"participants"`
	Text         string    `json:"text"`
	Timestamp    time.Time `json:"timestamp"`
	SeenByAdmin  bool      `json:"seenByAdmin"`
}

// Presence is the self-reported online/typing state of one identity.
type Presence struct {
	Identity string    `json:"-"`
	Online   bool      `json:"online"`
	Typing   bool      `json:"typing"`
	LastSeen time.Time `json:"lastSeen"`
}

// Config holds runtime parameters set via CLI flags.
type Config struct {
	AdminEmail     string
	BasePath       string
	SecureCookies  bool
	StudentPing    time.Duration // presence heartbeat period for students
	AdminPing      time.Duration // presence heartbeat period for the admin
	PresenceWindow time.Duration // lastSeen age under which a student counts as online
	TypingDelay    time.Duration
	DraftExplains  bool
}

// Answer returns a pointer to the given option index, for building answer slices.
func Answer(i int) *int {
	return &i
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the URL prefix the app is mounted under.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the URL prefix, or "".
func BasePathFromContext(ctx context.Context) string {
	p, _ := ctx.Value(basePathCtxKey{}).(string)
	return p
}
