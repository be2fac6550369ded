package catalog

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSSourceList(t *testing.T) {
	fsys := fstest.MapFS{
		"替身文系列/inspiration.md": {Data: []byte(
			"---\nid: tishen-01\nname: 替身文-宏观-灵感捕捉\ndescription: 灵感\ntags: [替身文, 宏观]\n---\n## 输入插槽\n{{project_brief}}\n")},
		"general/outline.md": {Data: []byte("# 大纲生成系统\n\n## 输入插槽\n{{concept}}\n")},
		"loose.md":           {Data: []byte("no title here")},
		"notes.txt":          {Data: []byte("skipped")},
	}

	got, err := NewFSSource(fsys).List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	byID := make(map[string]TemplateItem)
	for _, it := range got {
		byID[it.ID] = it
	}

	fm := byID["tishen-01"]
	assert.Equal(t, "替身文-宏观-灵感捕捉", fm.Name)
	assert.Equal(t, "替身文系列", fm.Category)
	assert.Equal(t, TagList{"替身文", "宏观"}, fm.Tags)
	assert.Equal(t, "## 输入插槽\n{{project_brief}}\n", fm.Content)

	derived := byID["outline"]
	assert.Equal(t, "大纲生成系统", derived.Name)
	assert.Equal(t, "general", derived.Category)

	loose := byID["loose"]
	assert.Equal(t, "loose", loose.Name)
	assert.Empty(t, loose.Category)
}

func TestFSSourceBadFrontMatter(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.md": {Data: []byte("---\nname: [unclosed\n---\nbody")},
	}

	_, err := NewFSSource(fsys).List(context.Background())
	assert.Error(t, err)
}
