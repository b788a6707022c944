package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/tenant"
)

// MinPasswordLen is the shortest password Register accepts.
const MinPasswordLen = 6

// Authenticator checks and registers users. A user name doubles as the tenant name.
type Authenticator interface {
	Authenticate(username, password string) bool
	// Register returns false without error when the user already exists.
	Register(username, password string) (bool, error)
}

// FileStore keeps bcrypt hashes in a JSON object keyed by user name.
type FileStore struct {
	path   string
	cost   int
	mu     sync.Mutex
	logger *slog.Logger
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, cost: bcrypt.DefaultCost, logger: logger}
}

// WithCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *FileStore) WithCost(cost int) *FileStore {
	s.cost = cost
	return s
}

func (s *FileStore) Authenticate(username, password string) bool {
	s.mu.Lock()
	users, err := s.load()
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("auth.load.failed", "error", err)
		return false
	}
	hash, ok := users[username]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *FileStore) Register(username, password string) (bool, error) {
	if err := tenant.ValidateName(username); err != nil {
		return false, err
	}
	if len(password) < MinPasswordLen {
		return false, common.NewAppError("INVALID_PASSWORD",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLen), common.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return false, err
	}
	if _, exists := users[username]; exists {
		return false, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	users[username] = string(hash)
	if err := s.save(users); err != nil {
		return false, err
	}
	s.logger.Info("auth.register.ok", "tenant", username)
	return true, nil
}

// load returns an empty map when the file does not exist yet.
func (s *FileStore) load() (map[string]string, error) {
	users := map[string]string{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return users, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	if len(data) == 0 {
		return users, nil
	}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode users file: %w", err)
	}
	return users, nil
}

func (s *FileStore) save(users map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create users dir: %w", err)
	}
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}
