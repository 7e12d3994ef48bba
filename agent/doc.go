// Package agent implements the autonomous execution engine: a bounded
// think/act loop that pairs a language model with a tool registry.
//
// Each step consults the model with the conversation buffer and the tool
// catalogue, executes whatever tool calls come back, and folds the
// observations into the buffer for the next step. The loop ends when a
// terminal tool fires, the step budget runs out, or a cancellation flag is
// raised. Repetition is watched by a stuck detector that injects escalating
// corrective instructions, and long transcripts trigger a periodic accuracy
// monitor that re-grounds the model with a progress summary.
//
// # Architecture
//
//   - Engine: the state machine (Idle, Running, Finished, Error) driving
//     the loop. One engine owns one conversation buffer.
//   - Model: the consultation contract; *llm.Client satisfies it.
//   - tools.Registry / tools.Dispatcher: tool resolution and execution;
//     every tool failure is downgraded to an observation string so a bad
//     call never kills the run.
//   - Tracker: optional best-effort persistence of per-step progress notes.
//   - CancelFlag: settable stop signal, polled at the top of every step.
//
// # Quick Start
//
//	client, err := llm.NewClient("anthropic", llm.WithAPIKey(key))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry := tools.NewRegistry()
//	tools.RegisterBuiltins(registry)
//
//	eng := agent.New(client, registry,
//	    agent.WithSystemPrompt("You are a careful assistant."),
//	    agent.WithMaxSteps(30),
//	)
//
//	result, err := eng.Run(ctx, "Summarize the build failure in ci.log")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result)
package agent
