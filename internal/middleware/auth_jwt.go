package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type walletKey string

const walletAddressKey walletKey = "wallet_address"

// WalletClaims are the JWT claims issued after a successful wallet
// signature verification.
type WalletClaims struct {
	WalletAddress string `json:"wallet"`
	jwt.RegisteredClaims
}

// SignToken issues a session token for a verified wallet address.
func SignToken(secret, walletAddress string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := WalletClaims{
		WalletAddress: walletAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   walletAddress,
			Issuer:    "dogemint",
			Audience:  jwt.ClaimStrings{"dogemint-clients"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyToken parses and validates a session token.
func VerifyToken(secret, tokenString string) (*WalletClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &WalletClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*WalletClaims)
	if !ok || !token.Valid || claims.WalletAddress == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// AuthJWT authenticates requests by bearer token and stores the wallet
// address in the request context.
func AuthJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "invalid authorization", http.StatusUnauthorized)
				return
			}
			claims, err := VerifyToken(secret, parts[1])
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithWallet(r.Context(), claims.WalletAddress)))
		})
	}
}

// WithWallet returns a context carrying the authenticated wallet address.
func WithWallet(ctx context.Context, walletAddress string) context.Context {
	return context.WithValue(ctx, walletAddressKey, walletAddress)
}

// WalletFromContext returns the authenticated wallet address, if any.
func WalletFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(walletAddressKey).(string); ok {
		return v
	}
	return ""
}
