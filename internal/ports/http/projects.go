package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	commonhttp "github.com/dogma-project/dogma/common/net/http"
	"github.com/dogma-project/dogma/internal/command"
)

// listProjects implements `GET /api/v1/projects`.
func (h *handler) listProjects(c *fiber.Ctx) error {
	projects, err := h.deps.Projects.ListProjects(c.UserContext(), c.QueryBool("includeInternal", false))
	if err != nil {
		return writeError(c, err)
	}

	out := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectToResponse(p))
	}

	return commonhttp.OK(c, out)
}

// createProject implements `POST /api/v1/projects` with `{name}`.
func (h *handler) createProject(c *fiber.Ctx) error {
	req, err := decodeBody[createProjectRequest](c)
	if err != nil {
		return writeError(c, err)
	}

	cmd := command.Command{
		Kind:      command.CreateProject,
		Timestamp: time.Now(),
		Author:    req.Author.toAuthor(),
		Name:      req.Name,
	}

	return h.execute(c, cmd, func(res command.Result) error {
		return commonhttp.Created(c, projectToResponse(res.Project))
	})
}

// removeProject implements `DELETE /api/v1/projects/{p}`.
func (h *handler) removeProject(c *fiber.Ctx) error {
	cmd := command.Command{
		Kind:      command.RemoveProject,
		Timestamp: time.Now(),
		Project:   c.Params("project"),
	}

	return h.execute(c, cmd, func(command.Result) error {
		return commonhttp.NoContent(c)
	})
}

// patchProject implements `PATCH /api/v1/projects/{p}` with
// `[{op:"replace", path:"/status", value:"active"}]` as the unremove
// operation; any other patch is rejected as unsupported.
func (h *handler) patchProject(c *fiber.Ctx) error {
	ops, err := decodeBody[[]jsonPatchOp](c)
	if err != nil {
		return writeError(c, err)
	}

	for _, op := range ops {
		if op.Op == "replace" && op.Path == "/status" && op.Value == "active" {
			cmd := command.Command{
				Kind:      command.UnremoveProject,
				Timestamp: time.Now(),
				Project:   c.Params("project"),
			}

			return h.execute(c, cmd, func(command.Result) error {
				return commonhttp.NoContent(c)
			})
		}
	}

	return commonhttp.BadRequest(c, errorEnvelope{Exception: "BadRequest", Message: "unsupported patch document"})
}

// listRepositories implements `GET /api/v1/projects/{p}/repos`.
func (h *handler) listRepositories(c *fiber.Ctx) error {
	repos, err := h.deps.Projects.ListRepositories(c.UserContext(), c.Params("project"))
	if err != nil {
		return writeError(c, err)
	}

	out := make([]repositoryResponse, 0, len(repos))
	for _, r := range repos {
		out = append(out, repositoryToResponse(r))
	}

	return commonhttp.OK(c, out)
}

// createRepository implements the repos-create analog of §6.
func (h *handler) createRepository(c *fiber.Ctx) error {
	req, err := decodeBody[createRepositoryRequest](c)
	if err != nil {
		return writeError(c, err)
	}

	cmd := command.Command{
		Kind:      command.CreateRepository,
		Timestamp: time.Now(),
		Author:    req.Author.toAuthor(),
		Project:   c.Params("project"),
		Name:      req.Name,
	}

	return h.execute(c, cmd, func(res command.Result) error {
		return commonhttp.Created(c, repositoryToResponse(res.Repo))
	})
}

// removeRepository implements the repos-remove analog of §6.
func (h *handler) removeRepository(c *fiber.Ctx) error {
	cmd := command.Command{
		Kind:       command.RemoveRepository,
		Timestamp:  time.Now(),
		Project:    c.Params("project"),
		Repository: c.Params("repository"),
	}

	return h.execute(c, cmd, func(command.Result) error {
		return commonhttp.NoContent(c)
	})
}
