// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package seasync

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Ayushhgupta39/seabuddy/internal/auth"
)

// JWTAuth handles JWT authentication
type JWTAuth struct {
	secret []byte
}

// NewJWTAuth creates a new JWT authenticator
func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{
		secret: []byte(secret),
	}
}

// JWTClaims carries the tenant-scoped identity for sync calls.
// The user ID rides in the standard 'sub' claim.
type JWTClaims struct {
	TenantID string `json:"tid"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken mints a token for the given {tenant, user, role}.
func (j *JWTAuth) GenerateToken(tenantID, userID uuid.UUID, role string, expiration time.Duration) (string, error) {
	if !ValidRole(role) {
		return "", fmt.Errorf("unknown role: %s", role)
	}
	claims := &JWTClaims{
		TenantID: tenantID.String(),
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "seabuddy",
			Subject:   userID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (j *JWTAuth) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		if claims.Subject == "" {
			return nil, fmt.Errorf("missing sub (user ID) in token")
		}
		if claims.TenantID == "" {
			return nil, fmt.Errorf("missing tid (tenant ID) in token")
		}
		if !ValidRole(claims.Role) {
			return nil, fmt.Errorf("missing or unknown role in token")
		}
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// Actor converts validated claims into the trusted actor tuple.
func (c *JWTClaims) Actor() (Actor, error) {
	tenantID, err := uuid.Parse(c.TenantID)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid tid claim: %w", err)
	}
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid sub claim: %w", err)
	}
	return Actor{TenantID: tenantID, UserID: userID, Role: c.Role}, nil
}

// ActorFromRequest extracts the actor from the Authorization header
// (implements Authenticator).
func (j *JWTAuth) ActorFromRequest(r *http.Request) (Actor, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return Actor{}, fmt.Errorf("authorization header required")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return Actor{}, fmt.Errorf("bearer token required")
	}

	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid token: %w", err)
	}

	return claims.Actor()
}

// Middleware returns an HTTP middleware for JWT authentication
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		bearerToken := strings.Split(authHeader, " ")
		if len(bearerToken) != 2 || bearerToken[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := j.ValidateToken(bearerToken[1])
		if err != nil {
			// Safely log token prefix (max 20 chars)
			tokenPrefix := bearerToken[1]
			if len(tokenPrefix) > 20 {
				tokenPrefix = tokenPrefix[:20]
			}
			slog.Error("JWT validation failed", "error", err, "token_prefix", tokenPrefix)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := auth.SetActor(r.Context(), claims.TenantID, claims.Subject, claims.Role)
		r = r.WithContext(ctx)

		next.ServeHTTP(w, r)
	})
}
