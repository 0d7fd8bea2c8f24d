package project

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
	"github.com/dogma-project/dogma/internal/objectstore"
	"github.com/dogma-project/dogma/internal/repo"
)

const (
	projectMetaFile = "project.json"
	repoMetaFile    = "repository.json"
)

// AuditMirror records project/repository lifecycle events to an external
// audit trail. Implementations must tolerate being nil-checked by callers;
// Manager itself only ever calls a non-nil mirror.
type AuditMirror interface {
	RecordEvent(ctx context.Context, kind, project, repository string, at time.Time) error
}

// Manager is the project/repository registry of §4.D: a directory-based
// hierarchy rooted at dataDir, with one subdirectory per project and one
// subdirectory per repository within it, plus a lazily-populated cache of
// open repository engines.
type Manager struct {
	dataDir string
	pool    *repo.WorkerPool
	audit   AuditMirror

	cacheInvalidator repo.CacheInvalidator
	commitNotifier   repo.CommitNotifier

	mu      sync.Mutex
	engines map[string]*repo.Engine
}

// SetCacheInvalidator wires the process-wide repository cache into every
// engine this Manager opens, including ones already cached.
func (m *Manager) SetCacheInvalidator(inv repo.CacheInvalidator) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cacheInvalidator = inv

	for _, e := range m.engines {
		e.SetCacheInvalidator(inv)
	}
}

// SetCommitNotifier wires the process-wide watch service into every engine
// this Manager opens, including ones already cached.
func (m *Manager) SetCommitNotifier(n repo.CommitNotifier) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commitNotifier = n

	for _, e := range m.engines {
		e.SetCommitNotifier(n)
	}
}

// NewManager builds a Manager rooted at dataDir, sharing pool across every
// repository engine it opens. audit may be nil.
func NewManager(dataDir string, pool *repo.WorkerPool, audit AuditMirror) *Manager {
	return &Manager{
		dataDir: dataDir,
		pool:    pool,
		audit:   audit,
		engines: make(map[string]*repo.Engine),
	}
}

// Bootstrap ensures the internal "dogma" project and its reserved
// repositories exist, creating them on first run. It is idempotent.
func (m *Manager) Bootstrap(ctx context.Context) error {
	if m.projectExists(InternalProjectName) {
		return nil
	}

	_, err := m.createProject(ctx, InternalProjectName, "system")

	return err
}

func (m *Manager) projectDir(name string) string { return filepath.Join(m.dataDir, name) }

func (m *Manager) projectMetaPath(name string) string {
	return filepath.Join(m.projectDir(name), projectMetaFile)
}

func (m *Manager) repoDir(project, repository string) string {
	return filepath.Join(m.projectDir(project), repository)
}

func (m *Manager) repoMetaPath(project, repository string) string {
	return filepath.Join(m.repoDir(project, repository), repoMetaFile)
}

func (m *Manager) projectExists(name string) bool {
	_, err := os.Stat(m.projectMetaPath(name))
	return err == nil
}

func (m *Manager) repositoryExists(project, repository string) bool {
	_, err := os.Stat(m.repoMetaPath(project, repository))
	return err == nil
}

// CreateProject creates a new project owned by createdBy, along with its two
// reserved repositories. The internal "dogma" project name is rejected here;
// it is only ever created through Bootstrap.
func (m *Manager) CreateProject(ctx context.Context, name, createdBy string) (*Project, error) {
	if name == InternalProjectName {
		return nil, common.ValidateBusinessError(cn.ErrPermissionDenied, "", name)
	}

	return m.createProject(ctx, name, createdBy)
}

func (m *Manager) createProject(ctx context.Context, name, createdBy string) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ValidateName(name); err != nil {
		return nil, err
	}

	if m.projectExists(name) {
		return nil, common.ValidateBusinessError(cn.ErrProjectExists, "", name)
	}

	if err := os.MkdirAll(m.projectDir(name), 0o755); err != nil {
		return nil, wrapIOErr(err)
	}

	p := &Project{Name: name, CreatedBy: createdBy, CreatedAt: time.Now()}

	if err := writeJSON(m.projectMetaPath(name), p); err != nil {
		return nil, err
	}

	for _, r := range []string{ReservedRepoMeta, ReservedRepoDogma} {
		if _, err := m.createRepository(name, r, createdBy); err != nil {
			return nil, err
		}
	}

	m.recordAudit(ctx, "project.create", name, "")

	return p, nil
}

// GetProject returns the project record, or an ErrProjectNotFound error.
func (m *Manager) GetProject(ctx context.Context, name string) (*Project, error) {
	var p Project
	if err := readJSON(m.projectMetaPath(name), &p); err != nil {
		return nil, notFoundOr(err, cn.ErrProjectNotFound, name)
	}

	return &p, nil
}

// ListProjects returns every non-removed project, excluding the internal
// "dogma" project unless includeInternal is set.
func (m *Manager) ListProjects(ctx context.Context, includeInternal bool) ([]*Project, error) {
	names, err := m.projectNames()
	if err != nil {
		return nil, err
	}

	var out []*Project

	for _, name := range names {
		if name == InternalProjectName && !includeInternal {
			continue
		}

		p, err := m.GetProject(ctx, name)
		if err != nil {
			continue
		}

		if p.Removed() {
			continue
		}

		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

// ListRemovedProjects returns every soft-removed project.
func (m *Manager) ListRemovedProjects(ctx context.Context) ([]*Project, error) {
	names, err := m.projectNames()
	if err != nil {
		return nil, err
	}

	var out []*Project

	for _, name := range names {
		p, err := m.GetProject(ctx, name)
		if err != nil {
			continue
		}

		if p.Removed() {
			out = append(out, p)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (m *Manager) projectNames() ([]string, error) {
	entries, err := os.ReadDir(m.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, wrapIOErr(err)
	}

	var names []string

	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}

	return names, nil
}

// RemoveProject soft-removes a project by marking its own record removed; the
// records of its repositories are left unchanged.
func (m *Manager) RemoveProject(ctx context.Context, name string) error {
	if name == InternalProjectName {
		return common.ValidateBusinessError(cn.ErrPermissionDenied, "", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.GetProject(ctx, name)
	if err != nil {
		return err
	}

	now := time.Now()
	p.RemovedAt = &now

	if err := writeJSON(m.projectMetaPath(name), p); err != nil {
		return err
	}

	m.recordAudit(ctx, "project.remove", name, "")

	return nil
}

// UnremoveProject clears a project's soft-removal.
func (m *Manager) UnremoveProject(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.GetProject(ctx, name)
	if err != nil {
		return err
	}

	p.RemovedAt = nil
	p.PurgeRequested = false

	if err := writeJSON(m.projectMetaPath(name), p); err != nil {
		return err
	}

	m.recordAudit(ctx, "project.unremove", name, "")

	return nil
}

// MarkProjectForPurge flags a removed project for physical deletion by Purge.
func (m *Manager) MarkProjectForPurge(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.GetProject(ctx, name)
	if err != nil {
		return err
	}

	if !p.Removed() {
		return common.ValidateBusinessError(cn.ErrBadRequest, "", "project is not removed: "+name)
	}

	p.PurgeRequested = true

	return writeJSON(m.projectMetaPath(name), p)
}

// Purge physically deletes every project flagged for purge. It is meant to
// run periodically from a background worker.
func (m *Manager) Purge(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	names, err := m.projectNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		var p Project
		if err := readJSON(m.projectMetaPath(name), &p); err != nil {
			continue
		}

		if !p.Removed() || !p.PurgeRequested {
			continue
		}

		if err := os.RemoveAll(m.projectDir(name)); err != nil {
			return wrapIOErr(err)
		}

		m.dropEnginesForProject(name)
		m.recordAudit(ctx, "project.purge", name, "")
	}

	return nil
}

// CreateRepository creates a repository within an existing project. The
// reserved names "meta" and "dogma" cannot be created explicitly; they are
// provisioned automatically by CreateProject.
func (m *Manager) CreateRepository(ctx context.Context, project, name, createdBy string) (*Repository, error) {
	if isReservedRepo(name) {
		return nil, common.ValidateBusinessError(cn.ErrRepositoryExists, "", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.projectExists(project) {
		return nil, common.ValidateBusinessError(cn.ErrProjectNotFound, "", project)
	}

	r, err := m.createRepository(project, name, createdBy)
	if err != nil {
		return nil, err
	}

	m.recordAudit(ctx, "repository.create", project, name)

	return r, nil
}

func (m *Manager) createRepository(project, name, createdBy string) (*Repository, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	if m.repositoryExists(project, name) {
		return nil, common.ValidateBusinessError(cn.ErrRepositoryExists, "", name)
	}

	dir := m.repoDir(project, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, wrapIOErr(err)
	}

	if _, err := objectstore.Open(dir); err != nil {
		return nil, err
	}

	r := &Repository{Project: project, Name: name, CreatedBy: createdBy, CreatedAt: time.Now()}

	if err := writeJSON(m.repoMetaPath(project, name), r); err != nil {
		return nil, err
	}

	return r, nil
}

// GetRepository returns the repository record.
func (m *Manager) GetRepository(ctx context.Context, project, name string) (*Repository, error) {
	var r Repository
	if err := readJSON(m.repoMetaPath(project, name), &r); err != nil {
		return nil, notFoundOr(err, cn.ErrRepositoryNotFound, name)
	}

	return &r, nil
}

// ListRepositories returns every non-removed repository within project.
func (m *Manager) ListRepositories(ctx context.Context, project string) ([]*Repository, error) {
	entries, err := os.ReadDir(m.projectDir(project))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.ValidateBusinessError(cn.ErrProjectNotFound, "", project)
		}

		return nil, wrapIOErr(err)
	}

	var out []*Repository

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		r, err := m.GetRepository(ctx, project, e.Name())
		if err != nil {
			continue
		}

		if r.Removed() {
			continue
		}

		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

// RemoveRepository soft-removes a repository. The two reserved repositories
// cannot be removed through the public surface.
func (m *Manager) RemoveRepository(ctx context.Context, project, name string) error {
	if isReservedRepo(name) {
		return common.ValidateBusinessError(cn.ErrPermissionDenied, "", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.GetRepository(ctx, project, name)
	if err != nil {
		return err
	}

	now := time.Now()
	r.RemovedAt = &now

	if err := writeJSON(m.repoMetaPath(project, name), r); err != nil {
		return err
	}

	m.recordAudit(ctx, "repository.remove", project, name)

	return nil
}

// RotateEncryptionKey records that repository's content is (now) encrypted
// under keyID, flipping its encryption marker on first rotation. It does not
// touch the repository's stored content itself — encryption of content at
// rest happens below the object store, outside this manager's view; this
// only maintains the operator-visible marker and the active key identifier.
func (m *Manager) RotateEncryptionKey(ctx context.Context, project, repository, keyID string) (*Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.GetRepository(ctx, project, repository)
	if err != nil {
		return nil, err
	}

	r.Encrypted = true
	r.EncryptionKeyID = keyID

	if err := writeJSON(m.repoMetaPath(project, repository), r); err != nil {
		return nil, err
	}

	m.recordAudit(ctx, "repository.rotate_encryption_key", project, repository)

	return r, nil
}

// Engine returns the repository engine for (project, repository), opening
// and caching its object store on first access.
func (m *Manager) Engine(ctx context.Context, project, repository string) (*repo.Engine, error) {
	key := project + "/" + repository

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.engines[key]; ok {
		return e, nil
	}

	if !m.repositoryExists(project, repository) {
		return nil, common.ValidateBusinessError(cn.ErrRepositoryNotFound, "", repository)
	}

	store, err := objectstore.Open(m.repoDir(project, repository))
	if err != nil {
		return nil, err
	}

	e := repo.NewEngine(project, repository, store, m.pool)

	if m.cacheInvalidator != nil {
		e.SetCacheInvalidator(m.cacheInvalidator)
	}

	if m.commitNotifier != nil {
		e.SetCommitNotifier(m.commitNotifier)
	}

	m.engines[key] = e

	return e, nil
}

func (m *Manager) dropEnginesForProject(project string) {
	prefix := project + "/"

	for key := range m.engines {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(m.engines, key)
		}
	}
}

func (m *Manager) recordAudit(ctx context.Context, kind, project, repository string) {
	if m.audit == nil {
		return
	}

	_ = m.audit.RecordEvent(ctx, kind, project, repository, time.Now())
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return common.ValidateBusinessError(cn.ErrInternal, "", err.Error())
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return wrapIOErr(err)
	}

	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, v)
}

func notFoundOr(err error, sentinel error, arg string) error {
	if os.IsNotExist(err) {
		return common.ValidateBusinessError(sentinel, "", arg)
	}

	return wrapIOErr(err)
}

func wrapIOErr(err error) error {
	return common.ValidateBusinessError(cn.ErrStorage, "", err.Error())
}
