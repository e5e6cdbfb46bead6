package reportcache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsaid97/go-overlap-checker/report"
)

func TestKey(t *testing.T) {
	a := Key("POLYGON((0 0,1 0,1 1,0 0))", "", []string{"x", "y"})
	assert.Equal(t, a, Key("POLYGON((0 0,1 0,1 1,0 0))", "", []string{"x", "y"}))
	assert.True(t, len(a) > len(keyPrefix))

	assert.NotEqual(t, a, Key("POLYGON((0 0,1 0,1 1,0 0))", "MT-1", []string{"x", "y"}))
	assert.NotEqual(t, a, Key("POLYGON((0 0,1 0,1 1,0 0))", "", []string{"x"}))
	// Separators keep shifted boundaries distinct.
	assert.NotEqual(t, Key("ab", "", nil), Key("a", "b", nil))
}

func TestOpenWithoutAddress(t *testing.T) {
	assert.Nil(t, Open(Options{}))
}

func TestNilCacheIsAlwaysEmpty(t *testing.T) {
	var c *Redis
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
	c.Set(context.Background(), "k", &report.FinalResult{})
	assert.NoError(t, c.Close())
}

func TestUnreachableRedisMisses(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := New(client, 0)
	defer c.Close()
	assert.Equal(t, DefaultTTL, c.ttl)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c.Set(ctx, "k", report.Build(report.Aggregate{}, nil))
	res, ok := c.Get(ctx, "k")
	require.False(t, ok)
	assert.Nil(t, res)
}
