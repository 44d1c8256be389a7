package utils

import (
	"context"

	"compost-be/internal/auth"

	"github.com/google/uuid"
)

type ctxKey string

const claimsKey ctxKey = "jwt_claims"

func WithClaims(ctx context.Context, claims *auth.CustomClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*auth.CustomClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.CustomClaims)
	return claims, ok
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return claims.UserID, true
}

func GetRoleFromContext(ctx context.Context) (auth.Role, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	return claims.Role, true
}
