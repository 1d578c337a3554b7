package migrate

// Binding identifies which backing volume currently holds the data for the
// migrated claim name.
type Binding string

const (
	BindingOriginal Binding = "original"
	BindingTemp     Binding = "temp"
	BindingNew      Binding = "new"
)

// RunState is the process-local state of one migration run. It is owned by
// the orchestrator for the lifetime of a single invocation and discarded at
// run end. It is deliberately not persisted: a crash mid-run requires the
// operator to inspect the cluster and resume from the last completed step.
type RunState struct {
	// Completed lists the names of completed steps, in execution order.
	Completed []string

	// Binding tracks which volume currently backs the claim name.
	Binding Binding

	// HostReplicas is the host workload's replica count before the
	// migration, restored at the end.
	HostReplicas int32

	HostUp     bool
	MigratorUp bool
}

// NewRunState returns the state at the start of a run. HostReplicas defaults
// to one until the real count is observed; resumed runs that skipped the
// scale-down step keep the default unless the operator overrides it.
func NewRunState() *RunState {
	return &RunState{
		Binding:      BindingOriginal,
		HostReplicas: 1,
		HostUp:       true,
	}
}

// LastCompleted returns the name of the last completed step, or "none".
func (s *RunState) LastCompleted() string {
	if len(s.Completed) == 0 {
		return "none"
	}
	return s.Completed[len(s.Completed)-1]
}
