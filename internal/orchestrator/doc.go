// Package orchestrator is the entry point for processing a task. It wires the
// model registry, semantic cache, task queue, performance monitor and context
// enrichment together and returns a normalized result envelope.
//
// An Orchestrator owns none of those components' state. Each instance is built
// from an explicit Components value, so independent instances can coexist.
package orchestrator
