package auth

import (
	"fmt"

	"recipe-suggester/internal/infrastructure/config"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher bcrypt 雜湊，成本由設定決定
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher cost 為 0 時使用 bcrypt.DefaultCost，超出範圍時夾到邊界
func NewPasswordHasher(cost int) *PasswordHasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost}
}

// NewPasswordHasherFromConfig 依 auth.bcrypt_cost 創建
func NewPasswordHasherFromConfig(cfg *config.Config) *PasswordHasher {
	return NewPasswordHasher(cfg.Auth.BcryptCost)
}

// Hash 雜湊密碼
func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify 比對密碼
func (h *PasswordHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
