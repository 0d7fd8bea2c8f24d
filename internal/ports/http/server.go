// Package http implements the HTTP seam of §6: a thin translation layer
// between fiber's request/response cycle and the project manager, command
// executor and watch service that do the actual work. It adds no business
// logic of its own beyond request decoding and error-envelope shaping.
package http

import (
	"github.com/gofiber/fiber/v2"

	commonhttp "github.com/dogma-project/dogma/common/net/http"
	"github.com/dogma-project/dogma/internal/command"
	"github.com/dogma-project/dogma/internal/project"
	"github.com/dogma-project/dogma/internal/watch"
)

// Dependencies wires the handlers to the rest of the server process.
type Dependencies struct {
	Projects *project.Manager
	Executor command.Executor
	Watch    *watch.Service

	// BasicAuth, when non-nil, is applied to every /api/v1 route.
	BasicAuth commonhttp.BasicAuthFunc

	ServiceName string
	Version     string
}

// NewApp builds a fiber.App with every route of §6 mounted, plus the
// ambient health/version/correlation/logging middleware shared by every
// dogma-project service.
func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(commonhttp.WithCorrelationID())
	commonhttp.AllowFullOptionsWithCORS(app)
	app.Use(commonhttp.WithHTTPLogging())

	app.Get("/health", commonhttp.Ping)
	app.Get("/version", commonhttp.Version(deps.Version))
	app.Get("/", commonhttp.Welcome(deps.ServiceName, "version control for service configuration"))

	api := app.Group("/api/v1")

	if deps.BasicAuth != nil {
		api.Use(commonhttp.WithBasicAuth(deps.BasicAuth, deps.ServiceName))
	}

	h := &handler{deps: deps}

	api.Get("/projects", h.listProjects)
	api.Post("/projects", h.createProject)
	api.Delete("/projects/:project", h.removeProject)
	api.Patch("/projects/:project", h.patchProject)

	api.Get("/projects/:project/repos", h.listRepositories)
	api.Post("/projects/:project/repos", h.createRepository)
	api.Delete("/projects/:project/repos/:repository", h.removeRepository)

	api.Get("/projects/:project/repos/:repository/tree/revisions/:rev/*", h.listTree)
	api.Get("/projects/:project/repos/:repository/contents/revisions/:rev/*", h.getContents)
	api.Post("/projects/:project/repos/:repository/contents", h.push)
	api.Get("/projects/:project/repos/:repository/history/*", h.history)
	api.Get("/projects/:project/repos/:repository/compare/*", h.compare)
	api.Get("/projects/:project/repos/:repository/revision/:rev", h.normalizeRevision)
	api.Get("/projects/:project/repos/:repository/contents/*", h.watchContents)

	return app
}
