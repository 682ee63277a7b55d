package auth

import (
	"context"

	"github.com/yama-lei/plantodo/internal"
)

type Provider interface {
	ValidateToken(ctx context.Context, token string) (*internal.User, error)
}
