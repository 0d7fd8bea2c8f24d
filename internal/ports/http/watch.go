package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	commonhttp "github.com/dogma-project/dogma/common/net/http"
	"github.com/dogma-project/dogma/internal/watch"
)

const (
	defaultWatchTimeout = 30 * time.Second
	maxWatchTimeout      = 5 * time.Minute
)

// watchContents implements the long-poll watch endpoint of §6:
// `GET …/repos/{r}/contents{path}?revision=N` with header
// `if-none-match: <revision>` and configurable `prefer: wait=<seconds>`.
// The response is 304 on timeout, 200 with the new entry on wakeup.
func (h *handler) watchContents(c *fiber.Ctx) error {
	engine, err := h.engine(c)
	if err != nil {
		return writeError(c, err)
	}

	lastKnown, err := parseRevision(lastKnownRevision(c))
	if err != nil {
		return writeError(c, err)
	}

	path := wildcardPath(c)
	matcher := watch.FileQueryMatcher{Path: path, Query: parseQuery(c)}

	result, err := h.deps.Watch.Watch(c.UserContext(), c.Params("project"), c.Params("repository"),
		lastKnown, matcher, watchTimeout(c))
	if err != nil {
		return writeError(c, err)
	}

	if result.TimedOut {
		return commonhttp.NotModified(c)
	}

	entry, err := engine.Get(c.UserContext(), result.Revision, path, parseQuery(c))
	if err != nil {
		return writeError(c, err)
	}

	if entry == nil {
		return commonhttp.NotFound(c, "EntryNotFound", "Entry Not Found", "no entry at the given path and revision")
	}

	c.Set("ETag", strconv.Itoa(int(result.Revision)))

	return commonhttp.OK(c, entryToResponse(entry))
}

func lastKnownRevision(c *fiber.Ctx) string {
	if q := c.Query("revision"); q != "" {
		return q
	}

	return c.Get("if-none-match")
}

// watchTimeout reads the `prefer: wait=<seconds>` header, clamped to
// maxWatchTimeout, defaulting to defaultWatchTimeout when absent or
// malformed.
func watchTimeout(c *fiber.Ctx) time.Duration {
	prefer := c.Get("prefer")

	const waitPrefix = "wait="

	idx := strings.Index(prefer, waitPrefix)
	if idx == -1 {
		return defaultWatchTimeout
	}

	rest := prefer[idx+len(waitPrefix):]
	if comma := strings.IndexByte(rest, ','); comma != -1 {
		rest = rest[:comma]
	}

	seconds, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || seconds <= 0 {
		return defaultWatchTimeout
	}

	d := time.Duration(seconds) * time.Second
	if d > maxWatchTimeout {
		return maxWatchTimeout
	}

	return d
}
