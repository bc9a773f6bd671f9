// Package agent implements the provider-agnostic tool calling agent.
//
// A FunctionAgent is a core.Task. Each execution starts a conversation on a
// model.Chat seeded with the task input, then alternates between asking the
// model and running the tools it requests:
//
//	AWAITING_MODEL -> TEXT (done) | TOOL_CALLS -> dispatch -> AWAITING_MODEL
//
// The loop is bounded by MaxTurns (default 5); a turn is one model call plus
// the dispatch of the calls it requested. Tool calls of one turn run in the
// order the provider listed them, inline on the calling goroutine. Tool errors
// and provider failures abort the execution unchanged. When the budget runs
// out without a text answer, Execute fails with core.ErrMaxTurnsReached.
//
// Example:
//
//	a, err := agent.New("weather", openai.NewChat(), func(o *agent.Options) {
//		o.Tools = []tool.Tool{weatherTool}
//	})
//	out, err := a.Execute(ctx, core.TaskInput{Content: "Weather in Berlin?"})
package agent
