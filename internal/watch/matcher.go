// Package watch implements the watch service of §4.G: given a repository, a
// last-known revision and a matcher, it returns the first later revision
// where the matcher observes a different value, or a timeout sentinel.
package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"

	"github.com/dogma-project/dogma/internal/repo"
)

// Matcher decides whether candidate (some revision strictly after
// lastKnown) is a revision the caller should wake up for.
type Matcher interface {
	Matches(ctx context.Context, engine *repo.Engine, lastKnown, candidate int32) (bool, error)
}

// PathPatternMatcher fires when any commit strictly after lastKnown, up to
// and including candidate, touches a path matching Pattern.
type PathPatternMatcher struct {
	Pattern string
}

func (m PathPatternMatcher) Matches(ctx context.Context, engine *repo.Engine, lastKnown, candidate int32) (bool, error) {
	changes, err := engine.Diff(ctx, lastKnown, candidate, m.Pattern)
	if err != nil {
		return false, err
	}

	return len(changes) > 0, nil
}

// FileQueryMatcher fires only when the projected output of Path through
// Query differs between lastKnown and candidate — unrelated changes to the
// same file, or changes that leave the projection unchanged, do not wake the
// waiter. JSON projections are compared by structural equality, so a
// reformatting of the same value does not wake it either.
type FileQueryMatcher struct {
	Path  string
	Query repo.Query
}

func (m FileQueryMatcher) Matches(ctx context.Context, engine *repo.Engine, lastKnown, candidate int32) (bool, error) {
	before, err := engine.Get(ctx, lastKnown, m.Path, m.Query)
	if err != nil {
		return false, err
	}

	after, err := engine.Get(ctx, candidate, m.Path, m.Query)
	if err != nil {
		return false, err
	}

	if before == nil && after == nil {
		return false, nil
	}

	if before == nil || after == nil {
		return true, nil
	}

	if before.Kind == repo.EntryJSON && after.Kind == repo.EntryJSON {
		var b, a any
		if json.Unmarshal(before.Content, &b) == nil && json.Unmarshal(after.Content, &a) == nil {
			return !reflect.DeepEqual(b, a), nil
		}
	}

	return !bytes.Equal(before.Content, after.Content), nil
}
