package http

import (
	"time"

	"github.com/dogma-project/dogma/internal/project"
	"github.com/dogma-project/dogma/internal/repo"
)

// authorRequest is the author identity carried on every write request. When
// absent, "anonymous" is recorded.
type authorRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a authorRequest) toAuthor() repo.Author {
	name := a.Name
	if name == "" {
		name = "anonymous"
	}

	return repo.Author{Name: name, Email: a.Email}
}

type createProjectRequest struct {
	Name   string        `json:"name"`
	Author authorRequest `json:"author"`
}

type createRepositoryRequest struct {
	Name   string        `json:"name"`
	Author authorRequest `json:"author"`
}

// jsonPatchOp is one RFC 6902 operation, as used by the project-unremove
// endpoint of §6.
type jsonPatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

type changeDTO struct {
	Type    string `json:"type"`
	Path    string `json:"path"`
	NewPath string `json:"newPath,omitempty"`
	Content []byte `json:"content,omitempty"`
}

func (c changeDTO) toChange() repo.Change {
	return repo.Change{Type: repo.ChangeType(c.Type), Path: c.Path, NewPath: c.NewPath, Content: c.Content}
}

func changeToDTO(c repo.Change) changeDTO {
	return changeDTO{Type: string(c.Type), Path: c.Path, NewPath: c.NewPath, Content: c.Content}
}

func changesToDTO(changes []repo.Change) []changeDTO {
	out := make([]changeDTO, 0, len(changes))
	for _, c := range changes {
		out = append(out, changeToDTO(c))
	}

	return out
}

// pushRequest is the commit envelope of §6: `POST …/repos/{r}/contents`.
type pushRequest struct {
	BaseRevision string        `json:"baseRevision"`
	Summary      string        `json:"summary"`
	Detail       string        `json:"detail"`
	Markup       string        `json:"markup"`
	Changes      []changeDTO   `json:"changes"`
	Normalizing  bool          `json:"normalizing"`
	ForcePush    bool          `json:"forcePush"`
	Author       authorRequest `json:"author"`
}

type pushResponse struct {
	Revision int32       `json:"revision"`
	Applied  []changeDTO `json:"applied"`
}

type entryResponse struct {
	Path     string `json:"path"`
	Revision int32  `json:"revision"`
	Kind     string `json:"kind"`
	Content  []byte `json:"content,omitempty"`
}

func entryToResponse(e *repo.Entry) entryResponse {
	return entryResponse{Path: e.Path, Revision: e.Revision, Kind: string(e.Kind), Content: e.Content}
}

type commitResponse struct {
	Revision int32       `json:"revision"`
	Author   authorRequest `json:"author"`
	Ts       time.Time   `json:"timestamp"`
	Summary  string      `json:"summary"`
	Detail   string      `json:"detail"`
	Markup   string      `json:"markup"`
	Changes  []changeDTO `json:"changes"`
}

func commitToResponse(c repo.Commit) commitResponse {
	return commitResponse{
		Revision: c.Revision,
		Author:   authorRequest{Name: c.Author.Name, Email: c.Author.Email},
		Ts:       c.Ts,
		Summary:  c.Summary,
		Detail:   c.Detail,
		Markup:   string(c.Markup),
		Changes:  changesToDTO(c.Changes),
	}
}

type projectResponse struct {
	Name      string     `json:"name"`
	CreatedBy string     `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
	Status    string     `json:"status"`
	RemovedAt *time.Time `json:"removedAt,omitempty"`
}

func projectToResponse(p *project.Project) projectResponse {
	status := "active"
	if p.Removed() {
		status = "removed"
	}

	return projectResponse{Name: p.Name, CreatedBy: p.CreatedBy, CreatedAt: p.CreatedAt, Status: status, RemovedAt: p.RemovedAt}
}

type repositoryResponse struct {
	Project   string     `json:"project"`
	Name      string     `json:"name"`
	CreatedBy string     `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
	Status    string     `json:"status"`
	RemovedAt *time.Time `json:"removedAt,omitempty"`
	Encrypted bool       `json:"encrypted"`
}

func repositoryToResponse(r *project.Repository) repositoryResponse {
	status := "active"
	if r.Removed() {
		status = "removed"
	}

	return repositoryResponse{
		Project: r.Project, Name: r.Name, CreatedBy: r.CreatedBy, CreatedAt: r.CreatedAt,
		Status: status, RemovedAt: r.RemovedAt, Encrypted: r.Encrypted,
	}
}
