package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadWorkflows loads one or more workflows from a YAML file. Supports files
// containing multiple YAML documents separated by `---`. Empty documents are
// ignored.
func LoadWorkflows(path string) ([]*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(data, path)
}

// LoadFS loads every workflow from the files in fsys matching pattern.
// Files are read in lexical order.
func LoadFS(fsys fs.FS, pattern string) ([]*Definition, error) {
	paths, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no workflow files match %s", pattern)
	}
	sort.Strings(paths)

	var defs []*Definition
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, err
		}
		got, err := decode(data, p)
		if err != nil {
			return nil, err
		}
		defs = append(defs, got...)
	}
	return defs, nil
}

// Parse decodes workflows from YAML bytes.
func Parse(data []byte) ([]*Definition, error) {
	return decode(data, "input")
}

func decode(data []byte, source string) ([]*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var defs []*Definition
	for {
		var def Definition
		if err := dec.Decode(&def); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		// skip completely empty docs
		if def.ID == "" && def.Name == "" && len(def.Steps) == 0 {
			continue
		}
		defs = append(defs, &def)
	}

	if len(defs) == 0 {
		return nil, fmt.Errorf("no workflows found in %s", source)
	}
	return defs, nil
}

// Find returns the definition with the given id, or nil.
func Find(defs []*Definition, id string) *Definition {
	for _, d := range defs {
		if d.ID == id {
			return d
		}
	}
	return nil
}
