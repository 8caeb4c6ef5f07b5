// Package generation defines the boundary between the orchestration core and the
// AI/LLM providers that actually process tasks. Providers (Gemini, the local echo
// processor, or anything registered by an embedding application) implement the
// Processor interface; the core never interprets their output beyond the typed
// Output contract declared here.
package generation
