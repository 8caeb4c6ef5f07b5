// Package catalog loads the model catalog: a YAML document describing which
// models to register, which provider backs each of them, and optional per-user
// business context and preferences used during task enrichment.
//
// A built-in catalog backed by the local echo provider is used when no file is
// configured.
package catalog
