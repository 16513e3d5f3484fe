// Package invalidate evaluates invalidation rules against entity-change
// events and applies direct, delayed, and cascading deletions against a
// store.Store.
//
// No direct teacher analog exists for rule evaluation; it is built in
// the teacher's general idiom (small pure functions, sentinel errors,
// table-driven tests). Delayed invalidation's timer bookkeeping is
// grounded on resilience/timeout.go's context-cancellation idiom.
package invalidate
