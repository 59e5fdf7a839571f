package review

// Optimistic is a pending optimistic change: a snapshot taken before the
// change was applied and the function that puts the snapshot back.
type Optimistic[S any] struct {
	restore  func(S)
	snapshot S
	settled  bool
}

// ApplyOptimistic captures a snapshot, applies the change, and returns a
// handle that can roll the change back.
func ApplyOptimistic[S any](capture func() S, apply func(), restore func(S)) *Optimistic[S] {
	o := &Optimistic[S]{snapshot: capture(), restore: restore}
	apply()
	return o
}

// Snapshot returns the state captured before the change.
func (o *Optimistic[S]) Snapshot() S {
	return o.snapshot
}

// Rollback restores the snapshot. It does nothing once the change settled.
func (o *Optimistic[S]) Rollback() {
	if o.settled {
		return
	}
	o.settled = true
	o.restore(o.snapshot)
}

// Commit keeps the change. Later rollbacks are ignored.
func (o *Optimistic[S]) Commit() {
	o.settled = true
}
