package main

import (
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/tool"
)

func runJob(ctx context.Context, b *builder, jf *config.JobFile, input string, all bool, w io.Writer) error {
	j, err := b.job(ctx, jf)
	if err != nil {
		return err
	}

	if err := j.Run(ctx, input); err != nil {
		return err
	}

	names := j.Tasks()
	if !all && jf.Mode == config.ModeSequential {
		names = names[len(names)-1:]
	}

	for _, name := range names {
		out, ok := j.TaskOutput(name)
		if !ok {
			continue
		}

		if len(names) > 1 {
			fmt.Fprintf(w, "== %s ==\n", name)
		}

		fmt.Fprintln(w, tool.Stringify(out.Content))
	}

	return nil
}
