package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/taskmesh/tool"
)

// now is replaced in tests.
var now = time.Now

type wordCountArgs struct {
	Text string `json:"text" description:"Text to count words in"`
}

var builtins = map[string]func() tool.Tool{
	"clock": func() tool.Tool {
		return tool.NewFunctionTool("clock", "Returns the current UTC time in RFC 3339 format", nil,
			func(context.Context, map[string]any) (any, error) {
				return now().UTC().Format(time.RFC3339), nil
			})
	},
	"word_count": func() tool.Tool {
		return tool.NewFunctionToolFromStruct("word_count", "Counts the words in a text", wordCountArgs{},
			func(_ context.Context, args map[string]any) (any, error) {
				text, _ := args["text"].(string)
				return len(strings.Fields(text)), nil
			})
	},
}

func builtinTools(names []string) ([]tool.Tool, error) {
	tools := make([]tool.Tool, 0, len(names))

	for _, name := range names {
		mk, ok := builtins[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", tool.ErrToolNotFound, name)
		}
		tools = append(tools, mk())
	}

	return tools, nil
}
