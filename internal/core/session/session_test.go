package session

import (
	"sync"
	"testing"

	"recipe-suggester/internal/pkg/common"

	"github.com/stretchr/testify/assert"
)

func TestSignInSignOut(t *testing.T) {
	s := New()
	assert.Empty(t, s.Token())

	s.SignIn(common.AuthResponse{AccessToken: "abc", TokenType: "bearer", User: common.User{ID: 1, Email: "a@b.c"}})
	assert.Equal(t, "abc", s.Token())
	u, ok := s.User()
	assert.True(t, ok)
	assert.Equal(t, "a@b.c", u.Email)

	s.Select(42)
	s.SignOut()
	assert.Empty(t, s.Token())
	_, ok = s.User()
	assert.False(t, ok)
	_, ok = s.SelectedRecipe()
	assert.False(t, ok)
}

func TestSelect(t *testing.T) {
	s := NewWithToken("t")
	_, ok := s.SelectedRecipe()
	assert.False(t, ok)

	s.Select(7)
	id, ok := s.SelectedRecipe()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	s.ClearSelection()
	_, ok = s.SelectedRecipe()
	assert.False(t, ok)
}

func TestConcurrentReaders(t *testing.T) {
	s := NewWithToken("t")
	var r Reader = s

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.Token()
				_, _ = r.SelectedRecipe()
			}
		}(i)
	}
	for j := 0; j < 100; j++ {
		s.Select(int64(j))
	}
	wg.Wait()
}
