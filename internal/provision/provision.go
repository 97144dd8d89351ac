// Package provision orchestrates user instance lifecycle: directory
// tree, workspace template, secrets, gateway token, runtime config,
// network, and container. Every step creates-if-absent or overwrites
// deterministically, so a failed provision is retried by running it
// again; there is no rollback.
package provision

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/clawops/clawctl/internal/audit"
	"github.com/clawops/clawctl/internal/clawerr"
	"github.com/clawops/clawctl/internal/config"
	"github.com/clawops/clawctl/internal/docker"
	"github.com/clawops/clawctl/internal/log"
	"github.com/clawops/clawctl/internal/openclaw"
	"github.com/clawops/clawctl/internal/paths"
	"github.com/clawops/clawctl/internal/secrets"
)

// Orchestrator coordinates provisioning and removal. Operations on the
// same username are serialized in-process; operations on different
// usernames run independently.
type Orchestrator struct {
	cfg     *config.Config
	paths   *paths.Resolver
	secrets *secrets.Store
	runtime docker.Runtime
	audit   *audit.Store // optional; nil disables event recording

	// Provider hints the model routing service in generated configs
	// (openclaw.ProviderOpenRouter or "" for direct access).
	Provider string

	locks userLocks
}

// New creates an Orchestrator. auditStore may be nil.
func New(cfg *config.Config, runtime docker.Runtime, auditStore *audit.Store) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		paths:   cfg.Paths(),
		secrets: secrets.NewStore(cfg.Paths()),
		runtime: runtime,
		audit:   auditStore,
	}
}

// userLocks hands out one mutex per username.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *userLocks) get(username string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[username]
	if !ok {
		m = &sync.Mutex{}
		l.locks[username] = m
	}
	return m
}

// Provision fully provisions a user: directories, template, secrets,
// gateway token, openclaw.json, image, network, container. Safe to
// re-run; an existing container is started rather than recreated. The
// image build runs outside the per-user lock because it is slow and
// shared across users.
func (o *Orchestrator) Provision(ctx context.Context, username string, secretValues map[string]string) error {
	user := o.cfg.User(username)
	if user == nil {
		return clawerr.NotFound("user %s is not in the configuration", username)
	}

	lock := o.locks.get(username)
	lock.Lock()
	err := o.prepare(user, secretValues)
	lock.Unlock()
	if err != nil {
		return err
	}

	exists, err := o.runtime.ImageExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		if err := o.runtime.BuildImage(ctx); err != nil {
			return err
		}
	}

	lock.Lock()
	defer lock.Unlock()

	hasContainer, err := o.runtime.ContainerExists(ctx, username)
	if err != nil {
		return err
	}
	if !hasContainer {
		if err := o.runtime.CreateContainer(ctx, user); err != nil {
			return err
		}
	}
	if err := o.runtime.StartContainer(ctx, username); err != nil {
		return err
	}

	o.record(audit.EventProvision, username, map[string]any{"recreated": !hasContainer})
	log.Info("provisioned user", "user", username)
	return nil
}

// prepare runs the filesystem half of provisioning: directories,
// template copy, secrets, gateway token, runtime config.
func (o *Orchestrator) prepare(user *config.User, secretValues map[string]string) error {
	if err := o.paths.EnsureUserDirs(user.Name); err != nil {
		return err
	}

	if tmpl := o.cfg.EffectiveTemplate(user); tmpl != "" {
		copied, err := CopyTemplate(tmpl, o.paths.UserOpenclawDir(user.Name))
		if err != nil {
			return err
		}
		if len(copied) > 0 {
			log.Debug("seeded workspace from template", "user", user.Name, "files", len(copied))
		}
	}

	for name, value := range secretValues {
		if _, err := o.secrets.Write(user.Name, name, value); err != nil {
			return err
		}
	}

	token, err := o.secrets.EnsureGatewayToken(user.Name)
	if err != nil {
		return err
	}

	return openclaw.Write(o.cfg, user, o.paths.UserOpenclawConfig(user.Name), token, o.Provider)
}

// RegenerateConfig rewrites the user's openclaw.json from the current
// configuration without touching anything else.
func (o *Orchestrator) RegenerateConfig(username string) error {
	user := o.cfg.User(username)
	if user == nil {
		return clawerr.NotFound("user %s is not in the configuration", username)
	}

	lock := o.locks.get(username)
	lock.Lock()
	defer lock.Unlock()

	token, err := o.secrets.EnsureGatewayToken(username)
	if err != nil {
		return err
	}
	return openclaw.Write(o.cfg, user, o.paths.UserOpenclawConfig(username), token, o.Provider)
}

// Remove tears down a user's container and network, and with
// keepData=false also the per-user data tree and secrets. Runtime
// teardown happens first so a mid-failure leaves data intact.
func (o *Orchestrator) Remove(ctx context.Context, username string, keepData bool) error {
	lock := o.locks.get(username)
	lock.Lock()
	defer lock.Unlock()

	if err := o.runtime.RemoveContainer(ctx, username); err != nil {
		return err
	}
	if err := o.runtime.RemoveNetwork(ctx, username); err != nil {
		return err
	}

	if !keepData {
		if err := os.RemoveAll(o.paths.UserDir(username)); err != nil {
			return fmt.Errorf("removing data for %s: %w", username, err)
		}
		if err := o.secrets.RemoveAll(username); err != nil {
			return err
		}
	}

	o.record(audit.EventRemove, username, map[string]any{"keep_data": keepData})
	log.Info("removed user", "user", username, "keep_data", keepData)
	return nil
}

// record writes an audit event; audit failures are logged, never
// propagated into the operation's result.
func (o *Orchestrator) record(event audit.EventType, username string, detail any) {
	if o.audit == nil {
		return
	}
	if err := o.audit.Record(event, username, detail); err != nil {
		log.Warn("audit record failed", "event", string(event), "user", username, "error", err)
	}
}
