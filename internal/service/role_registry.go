package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	domainauth "github.com/target/rolegate/internal/domain/auth"
	"github.com/target/rolegate/internal/ports"
	"golang.org/x/sync/singleflight"
)

// RegistryState describes what the role registry currently holds.
type RegistryState string

const (
	// RegistryUnfetched means no fetch has completed yet.
	RegistryUnfetched RegistryState = "unfetched"
	// RegistryEmptyRetryable means the last fetch hit a storage failure; the next call refetches.
	RegistryEmptyRetryable RegistryState = "empty_retryable"
	// RegistryPopulated means a document was parsed and is kept for the life of the process.
	RegistryPopulated RegistryState = "populated"
)

// TokenFunc supplies the bearer token used to read the role document.
type TokenFunc func(ctx context.Context) (string, error)

// RoleRegistryOptions groups dependencies for RoleRegistry.
type RoleRegistryOptions struct {
	Fetcher ports.RoleFetcher
	Logger  *slog.Logger

	// FetchTimeout bounds a shared fetch, which outlives the caller that started it.
	FetchTimeout time.Duration
}

const defaultRoleFetchTimeout = 30 * time.Second

// RoleRegistry memoizes the first successfully parsed role document process-wide.
// Concurrent cold callers share a single in-flight fetch.
type RoleRegistry struct {
	fetcher ports.RoleFetcher
	logger  *slog.Logger
	timeout time.Duration
	group   singleflight.Group

	mu    sync.RWMutex
	state RegistryState
	roles []domainauth.Role
	// gen is bumped by Invalidate; a fetch started under an older gen does not commit.
	gen   uint64
}

const registryFlightKey = "roles"

// NewRoleRegistry constructs an unfetched RoleRegistry.
func NewRoleRegistry(opts RoleRegistryOptions) *RoleRegistry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = defaultRoleFetchTimeout
	}
	return &RoleRegistry{
		fetcher: opts.Fetcher,
		logger:  logger.With("component", "role_registry"),
		timeout: timeout,
		state:   RegistryUnfetched,
	}
}

// Roles returns the ordered registry. A storage failure yields an empty list and nil error
// without memoizing; token and parse failures are returned.
//
// The shared fetch is detached from ctx so one caller going away does not fail the others;
// ctx only bounds how long this caller waits.
func (r *RoleRegistry) Roles(ctx context.Context, token TokenFunc) ([]domainauth.Role, error) {
	if roles, ok := r.cached(); ok {
		return roles, nil
	}

	ch := r.group.DoChan(registryFlightKey, func() (any, error) {
		if roles, ok := r.cached(); ok {
			return roles, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.load(fetchCtx, token)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for role fetch: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			r.logger.DebugContext(ctx, "joined in-flight role fetch")
		}
		return slices.Clone(res.Val.([]domainauth.Role)), nil
	}
}

func (r *RoleRegistry) load(ctx context.Context, token TokenFunc) ([]domainauth.Role, error) {
	r.mu.RLock()
	gen := r.gen
	r.mu.RUnlock()

	tok, err := token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire storage token: %w", err)
	}

	roles, err := r.fetcher.FetchRoles(ctx, tok)
	if errors.Is(err, ports.ErrRolesUnavailable) {
		r.mu.Lock()
		if r.gen == gen {
			r.state = RegistryEmptyRetryable
		}
		r.mu.Unlock()
		r.logger.WarnContext(ctx, "role registry empty, will retry on next request")
		return []domainauth.Role{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch roles: %w", err)
	}
	if roles == nil {
		roles = []domainauth.Role{}
	}

	r.mu.Lock()
	committed := r.gen == gen
	if committed {
		r.roles = slices.Clone(roles)
		r.state = RegistryPopulated
	}
	r.mu.Unlock()
	if !committed {
		r.logger.InfoContext(ctx, "role registry invalidated during fetch, result not kept")
		return roles, nil
	}
	r.logger.InfoContext(ctx, "role registry loaded", "roles", len(roles))
	return roles, nil
}

func (r *RoleRegistry) cached() ([]domainauth.Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state != RegistryPopulated {
		return nil, false
	}
	return slices.Clone(r.roles), true
}

// State reports the current cache state.
func (r *RoleRegistry) State() RegistryState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Invalidate drops the memoized document so the next call fetches again.
func (r *RoleRegistry) Invalidate() {
	r.mu.Lock()
	r.roles = nil
	r.state = RegistryUnfetched
	r.gen++
	r.mu.Unlock()
	r.group.Forget(registryFlightKey)
}
