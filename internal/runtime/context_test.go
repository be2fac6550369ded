package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DomeenoH/MuMuAINovel/internal/runtime"
)

func TestContextSetGet(t *testing.T) {
	ctx := runtime.NewContext()

	_, ok := ctx.Get("brief")
	assert.False(t, ok)

	ctx.Set("brief", "hello")
	ctx.Set("brief", "hello again")

	v, ok := ctx.Get("brief")
	assert.True(t, ok)
	assert.Equal(t, "hello again", v)
	assert.Equal(t, 1, ctx.Len())
}

func TestContextMergeOverwrites(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.Set("a", "1")

	ctx.Merge(map[string]string{"a": "2", "b": "3"})

	assert.Equal(t, map[string]string{"a": "2", "b": "3"}, ctx.Snapshot())
	assert.Equal(t, []string{"a", "b"}, ctx.Keys())
}

func TestContextPrefillSkipsEmpty(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.Merge(map[string]string{"a": "x", "b": ""})

	got := ctx.Prefill([]string{"a", "b", "c"})

	assert.Equal(t, map[string]string{"a": "x"}, got)
}

func TestContextSnapshotIsACopy(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.Set("a", "1")

	snap := ctx.Snapshot()
	snap["a"] = "changed"

	assert.Equal(t, "1", ctx.Value("a"))
}

func TestContextLookup(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.Merge(map[string]string{"project_brief": "", "inspiration_pool": "ideas"})

	assert.Equal(t, "ideas", ctx.Lookup("project_brief", "inspiration_pool"))
	assert.Equal(t, "", ctx.Lookup("missing"))
}
