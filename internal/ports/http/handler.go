package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/dogma-project/dogma/internal/command"
)

type handler struct {
	deps Dependencies
}

func decodeBody[T any](c *fiber.Ctx) (T, error) {
	var v T
	err := json.Unmarshal(c.Body(), &v)
	return v, err
}

// execute runs cmd through the configured executor and, on success, invokes
// write to shape the 2xx response from the result.
func (h *handler) execute(c *fiber.Ctx, cmd command.Command, write func(command.Result) error) error {
	res, err := h.deps.Executor.Execute(c.UserContext(), cmd)
	if err != nil {
		return writeError(c, err)
	}

	return write(res)
}
