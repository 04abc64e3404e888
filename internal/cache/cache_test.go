package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueAndSet(t *testing.T) {
	c := New()

	_, ok := c.Value("user:octocat")
	assert.False(t, ok)

	c.Set("user:octocat", "profile")
	v, ok := c.Value("user:octocat")
	assert.True(t, ok)
	assert.Equal(t, "profile", v)

	c.Set("user:octocat", "replaced")
	v, _ = c.Value("user:octocat")
	assert.Equal(t, "replaced", v)
	assert.Equal(t, 1, c.Len())
}

func TestGetOrComputeMemoizes(t *testing.T) {
	c := New()
	calls := 0

	producer := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := GetOrCompute(c, "pr:octocat/hello-world/7", producer)
	assert.NoError(t, err)
	assert.Equal(t, 42, v)

	// Second call must be served from the cache without re-running the producer.
	v, err = GetOrCompute(c, "pr:octocat/hello-world/7", producer)
	assert.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestGetOrComputeKeysAreIndependent(t *testing.T) {
	c := New()

	a, err := GetOrCompute(c, "raw:https://example.com/a", func() (string, error) { return "aaa", nil })
	assert.NoError(t, err)
	b, err := GetOrCompute(c, "raw:https://example.com/b", func() (string, error) { return "bbb", nil })
	assert.NoError(t, err)

	assert.Equal(t, "aaa", a)
	assert.Equal(t, "bbb", b)
	assert.Equal(t, 2, c.Len())
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := New()
	calls := 0

	failing := func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("boom")
		}
		return "ok", nil
	}

	_, err := GetOrCompute(c, "repos:octocat", failing)
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())

	v, err := GetOrCompute(c, "repos:octocat", failing)
	assert.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestGetOrComputeStructValues(t *testing.T) {
	type record struct {
		ID   int
		Name string
	}
	c := New()

	v, err := GetOrCompute(c, "member:octocat", func() (record, error) {
		return record{ID: 7, Name: "octocat"}, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, record{ID: 7, Name: "octocat"}, v)

	cached, err := GetOrCompute(c, "member:octocat", func() (record, error) {
		t.Fatal("producer should not run for a cached key")
		return record{}, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, v, cached)
}
