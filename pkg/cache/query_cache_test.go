package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrLoad(t *testing.T) {
	c := New(Config{TTL: time.Minute})
	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"2025-09-02", "2025-09-01"}, nil
	}

	v, err := GetOrLoad(c, KeyDates, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-09-02", "2025-09-01"}, v)

	v, err = GetOrLoad(c, KeyDates, load)
	require.NoError(t, err)
	assert.Len(t, v, 2)
	assert.Equal(t, 1, calls, "第二次读取命中缓存")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)
	assert.Equal(t, 0.5, stats.HitRate)
	assert.Equal(t, 1, stats.Size)
}

func TestGetOrLoad_ErrorNotCached(t *testing.T) {
	c := New(Config{})
	_, err := GetOrLoad(c, KeySectors, func() ([]string, error) {
		return nil, errors.New("数据库已关闭")
	})
	require.Error(t, err)

	_, found := c.Get(KeySectors)
	assert.False(t, found)
	assert.Equal(t, DefaultConfig().TTL, c.Stats().TTL)
}

func TestGetOrLoad_TypeMismatchReloads(t *testing.T) {
	c := New(Config{})
	c.Set(KeyDates, 42)

	v, err := GetOrLoad(c, KeyDates, func() ([]string, error) { return []string{"x"}, nil })
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, v)
}

func TestInvalidate(t *testing.T) {
	c := New(Config{})
	c.Set(KeyDates, []string{"a"})
	c.Set(KeySectors, []string{"b"})

	c.Invalidate()

	_, found := c.Get(KeyDates)
	assert.False(t, found)
	assert.Equal(t, 0, c.Stats().Size)
	assert.Equal(t, int64(1), c.Stats().Invalidations)
}

func TestExpiration(t *testing.T) {
	c := New(Config{TTL: 20 * time.Millisecond, CleanupInterval: time.Minute})
	c.Set(KeyDates, []string{"a"})

	assert.Eventually(t, func() bool {
		_, found := c.Get(KeyDates)
		return !found
	}, time.Second, 10*time.Millisecond)
}
