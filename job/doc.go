// Package job runs named tasks against a shared, per-job memory.
//
// A SequentialJob executes its tasks one at a time in registration order. Each
// task has an input template whose placeholders are resolved against the
// job's root input and the memory left by earlier tasks:
//
//	{{root}}          the input passed to Run
//	{{<task>.input}}  the resolved input of an earlier task
//	{{<task>.output}} the output content of an earlier task
//
// A ConcurrentJob starts all of its tasks at once; every task receives the root
// input unchanged. The first failure cancels the shared context and is
// returned after every task has settled.
//
// Example:
//
//	j := job.NewSequentialJob().
//		AddTask(research).
//		AddTask(summarize, "Summarize:\n{{research.output}}")
//	if err := j.Run(ctx, "Go generics"); err != nil { ... }
//	out, _ := j.TaskOutput("summarize")
package job
