package auth

import (
	"context"

	"github.com/yama-lei/plantodo/internal"
	"github.com/yama-lei/plantodo/internal/storage"
)

// StoreProvider validates bearer tokens against the user collection.
type StoreProvider struct {
	users  storage.UserRepository
	logger internal.Logger
}

func NewStoreProvider(users storage.UserRepository, logger internal.Logger) *StoreProvider {
	return &StoreProvider{users: users, logger: logger}
}

func (p *StoreProvider) ValidateToken(ctx context.Context, token string) (*internal.User, error) {
	user, err := p.users.GetUserByToken(ctx, token)
	if err != nil {
		p.logger.Warnf("token rejected: %v", err)
		return nil, err
	}
	return user, nil
}

var _ Provider = (*StoreProvider)(nil)
