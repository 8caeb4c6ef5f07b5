// Package registry keeps the catalog of models available to the orchestrator,
// indexed by category and capability, and picks the best model for a set of
// selection criteria using hard constraints followed by a weighted composite score.
package registry
