// Package project implements the directory-based project/repository
// registry (§4.D): a configurable data root holding one subdirectory per
// project, each holding one subdirectory per repository.
package project

import (
	"regexp"
	"time"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
)

// Reserved names: every project carries these two repositories, and the
// "dogma" project itself is the internal operational project, invisible to
// non-administrators and immutable through the public surface.
const (
	InternalProjectName = "dogma"
	ReservedRepoMeta     = "meta"
	ReservedRepoDogma    = "dogma"
)

// Project is a named container owning a set of repositories.
type Project struct {
	Name           string         `json:"name"`
	CreatedBy      string         `json:"createdBy"`
	CreatedAt      time.Time      `json:"createdAt"`
	RemovedAt      *time.Time     `json:"removedAt,omitempty"`
	PurgeRequested bool           `json:"purgeRequested"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Removed reports whether the project has been soft-removed.
func (p *Project) Removed() bool { return p.RemovedAt != nil }

// Repository is one versioned commit log within a project.
type Repository struct {
	Project         string     `json:"project"`
	Name            string     `json:"name"`
	CreatedBy       string     `json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`
	RemovedAt       *time.Time `json:"removedAt,omitempty"`
	PurgeRequested  bool       `json:"purgeRequested"`
	Encrypted       bool       `json:"encrypted"`
	EncryptionKeyID string     `json:"encryptionKeyId,omitempty"`
}

// Removed reports whether the repository has been soft-removed.
func (r *Repository) Removed() bool { return r.RemovedAt != nil }

var nameRE = regexp.MustCompile(`^[A-Za-z0-9][-+_.0-9A-Za-z]*$`)

// ValidateName checks a project or repository name against §3's grammar.
func ValidateName(name string) error {
	if !nameRE.MatchString(name) {
		return common.ValidateBusinessError(cn.ErrInvalidPathParam, "", "name", name)
	}

	return nil
}

func isReservedRepo(name string) bool {
	return name == ReservedRepoMeta || name == ReservedRepoDogma
}
