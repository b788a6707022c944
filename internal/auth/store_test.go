package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
)

func newStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auth", "users.json")
	return NewFileStore(path, nil).WithCost(bcrypt.MinCost), path
}

func TestRegisterAndAuthenticate(t *testing.T) {
	s, path := newStore(t)

	ok, err := s.Register("alice", "secret1")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, s.Authenticate("alice", "secret1"))
	assert.False(t, s.Authenticate("alice", "wrong"))
	assert.False(t, s.Authenticate("bob", "secret1"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var users map[string]string
	require.NoError(t, json.Unmarshal(data, &users))
	require.Contains(t, users, "alice")
	assert.NotEqual(t, "secret1", users["alice"])
}

func TestRegisterExisting(t *testing.T) {
	s, _ := newStore(t)
	ok, err := s.Register("alice", "secret1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Register("alice", "another1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, s.Authenticate("alice", "secret1"))
}

func TestRegisterRejects(t *testing.T) {
	tests := []struct {
		name, user, pass string
	}{
		{"empty user", "", "secret1"},
		{"path user", "../etc", "secret1"},
		{"short password", "alice", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, path := newStore(t)
			ok, err := s.Register(tt.user, tt.pass)
			require.ErrorIs(t, err, common.ErrInvalidInput)
			assert.False(t, ok)
			assert.NoFileExists(t, path)
		})
	}
}

func TestAuthenticateMissingOrBrokenFile(t *testing.T) {
	s, path := newStore(t)
	assert.False(t, s.Authenticate("alice", "secret1"))

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	assert.False(t, s.Authenticate("alice", "secret1"))
	_, err := s.Register("alice", "secret1")
	require.Error(t, err)
}

func TestStoreSharedAcrossInstances(t *testing.T) {
	s, path := newStore(t)
	_, err := s.Register("alice", "secret1")
	require.NoError(t, err)

	other := NewFileStore(path, nil)
	assert.True(t, other.Authenticate("alice", "secret1"))
}
