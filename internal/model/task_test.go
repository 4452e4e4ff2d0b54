package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDGen_FrozenClockStillUnique(t *testing.T) {
	frozen := time.UnixMilli(1_700_000_000_000)
	g := NewIDGen(func() time.Time { return frozen })

	a, b, c := g.Next(), g.Next(), g.Next()
	assert.Equal(t, frozen.UnixMilli(), a)
	assert.Equal(t, a+1, b)
	assert.Equal(t, b+1, c)
}

func TestIDGen_FollowsClock(t *testing.T) {
	now := time.UnixMilli(1000)
	g := NewIDGen(func() time.Time { return now })

	assert.Equal(t, int64(1000), g.Next())
	now = time.UnixMilli(5000)
	assert.Equal(t, int64(5000), g.Next())
}

func TestIDGen_SeedSkipsPersistedIDs(t *testing.T) {
	g := NewIDGen(func() time.Time { return time.UnixMilli(10) })
	g.Seed([]Task{{ID: 3}, {ID: 42}, {ID: 7}})

	assert.Equal(t, int64(43), g.Next())
}

func TestTask_JSONShape(t *testing.T) {
	b, err := json.Marshal(Task{ID: 12, Title: "Buy milk"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":12,"titulo":"Buy milk"}`, string(b))
}
