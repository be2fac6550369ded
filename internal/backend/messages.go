package backend

import (
	"errors"
	"io"
	"strings"
)

// DefaultUserMessage is sent when a step has no input values.
const DefaultUserMessage = "请开始执行任务"

// BuildMessages returns the system message holding the resolved prompt and a
// user message listing each named value as "【name】:\nvalue", in the order of
// names, separated by blank lines. Names without a value are left out.
func BuildMessages(resolvedPrompt string, names []string, values map[string]string) []Message {
	blocks := make([]string, 0, len(names))
	for _, n := range names {
		v, ok := values[n]
		if !ok {
			continue
		}
		blocks = append(blocks, "【"+n+"】:\n"+v)
	}

	user := strings.Join(blocks, "\n\n")
	if user == "" {
		user = DefaultUserMessage
	}

	return []Message{
		{Role: RoleSystem, Content: resolvedPrompt},
		{Role: RoleUser, Content: user},
	}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
