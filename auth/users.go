package auth

import (
	"chat-broadcast/repositories"
	"fmt"
)

const RoleUser = "user"

type Account struct {
	Username string
	Password string
}

// DefaultAccounts are the demo users available at startup.
var DefaultAccounts = []Account{
	{Username: "Dulan", Password: "12345"},
	{Username: "Waruni", Password: "12345"},
}

// SeedUsers hashes each account password and stores it in repo.
func SeedUsers(repo repositories.IUserRepository, accounts []Account) error {
	for _, account := range accounts {
		hash, err := HashPassword(account.Password)
		if err != nil {
			return fmt.Errorf("hashing password of %s: %w", account.Username, err)
		}
		if err := repo.CreateUser(account.Username, hash, []string{RoleUser}); err != nil {
			return fmt.Errorf("creating user %s: %w", account.Username, err)
		}
	}
	return nil
}
