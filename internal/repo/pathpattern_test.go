package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatternMatch(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/**", "/a/b/c.json", true},
		{"", "/a", false},
		{"/a/*", "/a/b", true},
		{"/a/*", "/a/b/c", false},
		{"/a/**", "/a/b/c", true},
		{"/a/*,/b/*", "/b/x", true},
		{"/a/*,/b/*", "/c/x", false},
	}

	for _, c := range cases {
		p := CompilePattern(c.pattern)
		assert.Equal(t, c.want, p.Match(c.path), "pattern=%q path=%q", c.pattern, c.path)
	}
}
