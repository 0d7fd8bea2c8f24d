package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

func itoa32(n int32) string { return strconv.Itoa(int(n)) }

// splitRepoRef splits a "project/repository" reference, as accepted by
// every subcommand that operates against one repository.
func splitRepoRef(ref string) (project, repository string, err error) {
	parts := strings.SplitN(ref, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected a project/repository reference, got %q", ref)
	}

	return parts[0], parts[1], nil
}

// normalizePath ensures path arguments are absolute, the way every repo
// path in the wire protocol is expected to be.
func normalizePath(path string) string {
	if path == "" {
		return "/"
	}

	if path[0] != '/' {
		return "/" + path
	}

	return path
}
