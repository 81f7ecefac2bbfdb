package master

// CancelHandle stops an execution started by an Executor. It must not call
// the completion callback.
type CancelHandle func()

// Executor runs accepted work on an external cooperative timeline.
//
// Start must not block. done is called at most once when the work finishes;
// the Controller ignores completions for entries that already ended.
type Executor interface {
	Start(entry *WorkEntry, done func(err error)) CancelHandle
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(entry *WorkEntry, done func(err error)) CancelHandle

// Start calls f(entry, done).
func (f ExecutorFunc) Start(entry *WorkEntry, done func(err error)) CancelHandle {
	return f(entry, done)
}
