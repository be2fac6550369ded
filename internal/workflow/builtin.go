package workflow

import (
	"embed"
	"sync"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

var (
	builtinOnce sync.Once
	builtinDefs []*Definition
	builtinErr  error
)

// Builtin returns the workflows shipped with the binary, ordered by file name.
// The same slice is returned on every call; callers must not modify it.
func Builtin() ([]*Definition, error) {
	builtinOnce.Do(func() {
		builtinDefs, builtinErr = LoadFS(builtinFS, "builtin/*.yaml")
		if builtinErr == nil {
			builtinErr = ValidateAll(builtinDefs)
		}
	})
	return builtinDefs, builtinErr
}
