// Package domain defines the core orchestration entities: tasks as submitted by
// callers, the selection criteria derived from them, the typed results models
// produce and the envelope returned to callers, together with the error taxonomy
// shared by every component.
package domain
