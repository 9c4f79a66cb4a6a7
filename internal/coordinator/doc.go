// Package coordinator bounds how long callers wait on store updates and how
// many background update tasks may run at once.
//
//   - WithDeadline: generic wait-with-deadline combinator
//   - BoundedMerge: a store merge under WithDeadline
//   - Gate: counting semaphore plus drain hook for fire-and-forget tasks
package coordinator
