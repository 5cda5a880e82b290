package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kazz187/taskdesk/internal/employee"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

// Claims is the token payload. The subject is the employee id.
type Claims struct {
	Role employee.Role `json:"role"`
	jwt.RegisteredClaims
}

type Identity struct {
	EmployeeID string
	Role       employee.Role
}

// Verifier checks HS256 bearer tokens issued by the auth service.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "token expired"
		}
		return nil, cerr.NewError(cerr.Unauthenticated, msg, err)
	}
	if claims.Subject == "" {
		return nil, cerr.NewError(cerr.Unauthenticated, "invalid token", errors.New("missing subject"))
	}
	role := claims.Role
	if role == "" {
		role = employee.RoleEmployee
	}
	if !role.Valid() {
		return nil, cerr.NewError(cerr.Unauthenticated, "invalid token", fmt.Errorf("unknown role %q", role))
	}
	return &Identity{EmployeeID: claims.Subject, Role: role}, nil
}

// Issue signs a token for the employee. Used by the admin CLI for local
// development; production tokens come from the auth service.
func (v *Verifier) Issue(employeeID string, role employee.Role, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   employeeID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok
}

// EmployeeID returns the authenticated employee, or "" outside the
// middleware.
func EmployeeID(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.EmployeeID
	}
	return ""
}
