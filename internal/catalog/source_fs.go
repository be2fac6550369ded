package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FSSource reads markdown templates from a file system. A template may start
// with a YAML front matter block:
//
//	---
//	id: tishen-macro-01
//	name: 替身文-宏观-灵感捕捉
//	category: 替身文系列
//	tags: [替身文, 宏观]
//	---
//
// Missing fields are derived: the id from the file stem, the name from the
// first "# " heading (or the stem), the category from the parent directory.
type FSSource struct {
	FS fs.FS
}

func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{FS: fsys}
}

type frontMatter struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Tags        []string `yaml:"tags"`
}

// List returns every *.md file as a template, ordered by path.
func (s *FSSource) List(ctx context.Context) ([]TemplateItem, error) {
	var paths []string
	err := fs.WalkDir(s.FS, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(path.Ext(p), ".md") {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	items := make([]TemplateItem, 0, len(paths))
	for _, p := range paths {
		data, err := fs.ReadFile(s.FS, p)
		if err != nil {
			return nil, err
		}
		item, err := parseTemplateFile(p, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		items = append(items, item)
	}
	return items, nil
}

var fence = []byte("---")

func parseTemplateFile(p string, data []byte) (TemplateItem, error) {
	data = bytes.TrimPrefix(data, []byte("\uFEFF"))

	var fm frontMatter
	body := data
	if bytes.HasPrefix(data, fence) {
		rest := data[len(fence):]
		if end := bytes.Index(rest, []byte("\n---")); end >= 0 {
			if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
				return TemplateItem{}, fmt.Errorf("front matter: %w", err)
			}
			body = rest[end+len("\n---"):]
			body = bytes.TrimLeft(body, "\r\n")
		}
	}

	stem := strings.TrimSuffix(path.Base(p), path.Ext(p))
	item := TemplateItem{
		ID:          fm.ID,
		Name:        fm.Name,
		Description: fm.Description,
		Content:     string(body),
		Category:    fm.Category,
		Tags:        fm.Tags,
	}
	if item.ID == "" {
		item.ID = stem
	}
	if item.Name == "" {
		item.Name = title(item.Content)
	}
	if item.Name == "" {
		item.Name = stem
	}
	if item.Category == "" {
		if dir := path.Dir(p); dir != "." {
			item.Category = path.Base(dir)
		}
	}
	return item, nil
}

func title(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}
