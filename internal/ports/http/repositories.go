package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	commonhttp "github.com/dogma-project/dogma/common/net/http"
	"github.com/dogma-project/dogma/internal/command"
	"github.com/dogma-project/dogma/internal/repo"
)

func wildcardPath(c *fiber.Ctx) string {
	p := c.Params("*")
	if p == "" {
		return "/"
	}

	if p[0] != '/' {
		p = "/" + p
	}

	return p
}

func (h *handler) engine(c *fiber.Ctx) (*repo.Engine, error) {
	return h.deps.Projects.Engine(c.UserContext(), c.Params("project"), c.Params("repository"))
}

// listTree implements `GET …/repos/{r}/tree/revisions/{rev}{path-pattern}`.
func (h *handler) listTree(c *fiber.Ctx) error {
	engine, err := h.engine(c)
	if err != nil {
		return writeError(c, err)
	}

	rev, err := parseRevision(c.Params("rev"))
	if err != nil {
		return writeError(c, err)
	}

	entries, err := engine.List(c.UserContext(), rev, wildcardPath(c))
	if err != nil {
		return writeError(c, err)
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		e := e
		out = append(out, entryToResponse(&e))
	}

	return commonhttp.OK(c, out)
}

// getContents implements `GET …/repos/{r}/contents/revisions/{rev}{path}`.
func (h *handler) getContents(c *fiber.Ctx) error {
	engine, err := h.engine(c)
	if err != nil {
		return writeError(c, err)
	}

	rev, err := parseRevision(c.Params("rev"))
	if err != nil {
		return writeError(c, err)
	}

	entry, err := engine.Get(c.UserContext(), rev, wildcardPath(c), parseQuery(c))
	if err != nil {
		return writeError(c, err)
	}

	if entry == nil {
		return commonhttp.NotFound(c, "EntryNotFound", "Entry Not Found", "no entry at the given path and revision")
	}

	return commonhttp.OK(c, entryToResponse(entry))
}

func parseQuery(c *fiber.Ctx) repo.Query {
	qt := c.Query("queryType")
	if qt == "" {
		return repo.Query{Type: repo.QueryIdentity}
	}

	var exprs []string
	for _, b := range c.Context().QueryArgs().PeekMulti("expression") {
		exprs = append(exprs, string(b))
	}

	return repo.Query{Type: repo.QueryType(qt), Expressions: exprs}
}

// push implements `POST …/repos/{r}/contents` with a commit envelope.
func (h *handler) push(c *fiber.Ctx) error {
	req, err := decodeBody[pushRequest](c)
	if err != nil {
		return writeError(c, err)
	}

	base, err := parseRevision(req.BaseRevision)
	if err != nil {
		return writeError(c, err)
	}

	changes := make([]repo.Change, 0, len(req.Changes))
	for _, ch := range req.Changes {
		changes = append(changes, ch.toChange())
	}

	markup := req.Markup
	if markup == "" {
		markup = string(repo.MarkupPlain)
	}

	cmd := command.Command{
		Kind:         command.Push,
		Timestamp:    time.Now(),
		Author:       req.Author.toAuthor(),
		Project:      c.Params("project"),
		Repository:   c.Params("repository"),
		BaseRevision: base,
		Summary:      req.Summary,
		Detail:       req.Detail,
		Markup:       repo.Markup(markup),
		Changes:      changes,
		Normalizing:  req.Normalizing,
		ForcePush:    req.ForcePush,
	}

	return h.execute(c, cmd, func(res command.Result) error {
		return commonhttp.Created(c, pushResponse{Revision: res.Revision, Applied: changesToDTO(res.Applied)})
	})
}

// history implements `GET …/repos/{r}/history{pattern}?from=&to=&maxCommits=`.
func (h *handler) history(c *fiber.Ctx) error {
	engine, err := h.engine(c)
	if err != nil {
		return writeError(c, err)
	}

	from, err := parseRevision(c.Query("from"))
	if err != nil {
		return writeError(c, err)
	}

	to, err := parseRevision(c.Query("to"))
	if err != nil {
		return writeError(c, err)
	}

	maxCommits, _ := strconv.Atoi(c.Query("maxCommits"))

	commits, err := engine.History(c.UserContext(), from, to, wildcardPath(c), maxCommits)
	if err != nil {
		return writeError(c, err)
	}

	out := make([]commitResponse, 0, len(commits))
	for _, cm := range commits {
		out = append(out, commitToResponse(cm))
	}

	return commonhttp.OK(c, out)
}

// compare implements `GET …/repos/{r}/compare{pattern}?from=&to=`.
func (h *handler) compare(c *fiber.Ctx) error {
	engine, err := h.engine(c)
	if err != nil {
		return writeError(c, err)
	}

	from, err := parseRevision(c.Query("from"))
	if err != nil {
		return writeError(c, err)
	}

	to, err := parseRevision(c.Query("to"))
	if err != nil {
		return writeError(c, err)
	}

	changes, err := engine.Diff(c.UserContext(), from, to, wildcardPath(c))
	if err != nil {
		return writeError(c, err)
	}

	return commonhttp.OK(c, changesToDTO(changes))
}

// normalizeRevision implements `GET …/repos/{r}/revision/{rev}`.
func (h *handler) normalizeRevision(c *fiber.Ctx) error {
	engine, err := h.engine(c)
	if err != nil {
		return writeError(c, err)
	}

	rev, err := parseRevision(c.Params("rev"))
	if err != nil {
		return writeError(c, err)
	}

	abs, err := engine.NormalizeRevision(c.UserContext(), rev)
	if err != nil {
		return writeError(c, err)
	}

	return commonhttp.OK(c, fiber.Map{"revision": abs})
}
