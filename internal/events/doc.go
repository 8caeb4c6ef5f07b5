// Package events publishes task outcomes to interested components.
//
// The orchestrator emits an event once a task has produced a result or failed for
// good. Handlers such as session history tracking subscribe without the
// orchestrator knowing about them.
package events
