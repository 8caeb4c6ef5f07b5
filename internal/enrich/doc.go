// Package enrich resolves the context attached to a task before it is processed:
// business context and preferences for the submitting user, and the task types
// recently completed in the same session.
package enrich
