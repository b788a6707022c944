package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

// Placeholder is substituted with the tenant name in path and DSN templates.
const Placeholder = "{tenant}"

var validName = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// ValidateName rejects names that could escape the per-tenant directory.
func ValidateName(name string) error {
	if !validName.MatchString(name) || strings.Contains(name, "..") || name == "." {
		return common.NewAppError("INVALID_TENANT", fmt.Sprintf("invalid tenant name %q", name), common.ErrInvalidInput)
	}
	return nil
}

// Config holds the storage templates.
type Config struct {
	CSVPath string // e.g. data/users/{tenant}/invoices.csv
	DB      repository.Config
}

// Registry hands out one Handle per tenant, opening each database once.
type Registry struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	handles map[string]*entry
}

type entry struct {
	handle repository.Handle
	db     *repository.DB
}

func NewRegistry(cfg Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{cfg: cfg, logger: logger, handles: make(map[string]*entry)}
}

// Resolve returns the storage handle for name, opening its database on first use.
func (r *Registry) Resolve(ctx context.Context, name string) (repository.Handle, error) {
	if err := ValidateName(name); err != nil {
		return repository.Handle{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.handles[name]; ok {
		return e.handle, nil
	}

	dbCfg := r.cfg.DB
	dbCfg.DSN = Expand(dbCfg.DSN, name)
	db, err := repository.Open(ctx, dbCfg, r.logger)
	if err != nil {
		return repository.Handle{}, fmt.Errorf("open storage for tenant %s: %w", name, err)
	}
	h := repository.Handle{
		Tenant:   name,
		CSVPath:  Expand(r.cfg.CSVPath, name),
		Invoices: db.Invoices(r.logger.With("tenant", name)),
	}
	r.handles[name] = &entry{handle: h, db: db}
	r.logger.Info("tenant.storage.opened", "tenant", name, "csv", h.CSVPath, "driver", db.Dialect)
	return h, nil
}

// DB returns the open database for name, if Resolve has been called for it.
func (r *Registry) DB(name string) (*repository.DB, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.handles[name]
	if !ok {
		return nil, false
	}
	return e.db, true
}

// Close closes every opened database.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, e := range r.handles {
		e.db.Close(r.logger)
		delete(r.handles, name)
	}
}

// Expand substitutes name for every Placeholder in tmpl.
func Expand(tmpl, name string) string {
	return strings.ReplaceAll(tmpl, Placeholder, name)
}
