// Package task runs task executions through a priority queue with bounded
// concurrency and automatic retry. Callers submit an executor and block until it
// has either succeeded or failed for good.
package task
