// Package core provides the foundational types and interfaces shared by every
// taskmesh package:
//
//   - Task, TaskInput and TaskOutput (the unit of work and its payloads)
//   - the error taxonomy (configuration, input validation, turn budget)
//   - TurnLimiter, the bound on model calls made by an agent execution
//
// Implementations (jobs, agents, retrievers, provider adapters) live in their
// own packages and depend on core only through these small abstractions.
package core
