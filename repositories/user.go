//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-broadcast/errors"
	"sync"
)

type IUserRepository interface {
	CreateUser(username, hashedPassword string, roles []string) error
	GetUserByName(username string) (User, error)
}

// User is the stored representation of an account.
type User struct {
	Username     string
	PasswordHash string
	Roles        []string
}

// InMemoryUserRepository keeps accounts for the lifetime of the process.
type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{users: make(map[string]User)}
}

// CreateUser registers an account, replacing any previous one with the same name.
func (r *InMemoryUserRepository) CreateUser(username, hashedPassword string, roles []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[username] = User{Username: username, PasswordHash: hashedPassword, Roles: roles}
	return nil
}

func (r *InMemoryUserRepository) GetUserByName(username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[username]
	if !ok {
		return User{}, errors.ErrInvalidCredentials
	}
	return user, nil
}
