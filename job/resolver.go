package job

import (
	"fmt"
	"strings"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
	"github.com/hupe1980/taskmesh/memory"
)

const (
	// RootPlaceholder is replaced with the input passed to Run.
	RootPlaceholder = "{{root}}"

	inputSuffix  = ".input"
	outputSuffix = ".output"
)

// Resolve substitutes placeholders in template. {{root}} is replaced first,
// then every {{<task>.input}} and finally every {{<task>.output}} whose task
// is recorded in mem. Placeholders that appear in substituted content are
// resolved in the same pass. Placeholders that reference unknown tasks are
// left verbatim. Referenced content that is not a string fails with
// core.ErrNonTextContent.
func Resolve(template, root string, mem memory.Reader) (string, error) {
	text := strings.ReplaceAll(template, RootPlaceholder, root)

	text, err := substitute(text, inputSuffix, func(name string) (any, bool) {
		in, ok := mem.TaskInput(name)
		return in.Content, ok
	})
	if err != nil {
		return "", err
	}

	return substitute(text, outputSuffix, func(name string) (any, bool) {
		out, ok := mem.TaskOutput(name)
		return out.Content, ok
	})
}

// Unresolved returns the placeholders still present in text.
func Unresolved(text string) []string {
	names := util.Placeholders(text)
	if len(names) == 0 {
		return nil
	}

	out := make([]string, len(names))
	for i, n := range names {
		out[i] = util.Placeholder(n)
	}

	return out
}

// substitute replaces every placeholder with the given suffix, rescanning
// text so placeholders introduced by substituted content are resolved too.
// Each placeholder is replaced at most once, which bounds self references.
func substitute(text, suffix string, lookup func(name string) (any, bool)) (string, error) {
	done := map[string]struct{}{}

	for {
		replaced := false

		for _, token := range util.Placeholders(text) {
			if _, seen := done[token]; seen {
				continue
			}

			name, ok := strings.CutSuffix(token, suffix)
			if !ok || name == "" {
				continue
			}

			content, found := lookup(name)
			if !found {
				continue
			}

			s, isText := content.(string)
			if !isText {
				return "", fmt.Errorf("%w: %s of task %q holds %T", core.ErrNonTextContent, strings.TrimPrefix(suffix, "."), name, content)
			}

			text = strings.ReplaceAll(text, util.Placeholder(token), s)
			done[token] = struct{}{}
			replaced = true
		}

		if !replaced {
			return text, nil
		}
	}
}
