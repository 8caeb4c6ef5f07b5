// Package cache memoizes task results keyed by a fingerprint of the task type and
// input, and falls back to a similarity scan when no exact entry exists.
//
// The cache applies its own acceptance threshold to similar matches. Callers that
// want to reuse a result verbatim are expected to apply a stricter threshold on top
// of the similarity reported with each match.
package cache
