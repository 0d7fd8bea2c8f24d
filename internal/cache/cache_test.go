package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGet(t *testing.T) {
	c := New(16, 1<<20, time.Minute)

	key := Key{Project: "p", Repository: "r", Operation: "get", Args: []string{"1", "/a.json"}}
	c.Put(key, "value", 10)

	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestInvalidateRepository(t *testing.T) {
	c := New(16, 1<<20, time.Minute)

	k1 := Key{Project: "p", Repository: "r1", Operation: "get", Args: []string{"1"}}
	k2 := Key{Project: "p", Repository: "r2", Operation: "get", Args: []string{"1"}}
	c.Put(k1, "v1", 1)
	c.Put(k2, "v2", 1)

	c.InvalidateRepository("p", "r1")

	_, ok := c.Get(k1)
	assert.False(t, ok)

	v, ok := c.Get(k2)
	require.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestWeightEviction(t *testing.T) {
	c := New(100, 10, time.Minute)

	c.Put(Key{Project: "p", Repository: "r", Operation: "get", Args: []string{"1"}}, "v1", 6)
	c.Put(Key{Project: "p", Repository: "r", Operation: "get", Args: []string{"2"}}, "v2", 6)

	_, ok1 := c.Get(Key{Project: "p", Repository: "r", Operation: "get", Args: []string{"1"}})
	_, ok2 := c.Get(Key{Project: "p", Repository: "r", Operation: "get", Args: []string{"2"}})
	assert.False(t, ok1 && ok2, "both entries should not survive a weight budget of 10")
}
