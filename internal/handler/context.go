package handler

type ContextKey string

var (
	OrganizationCtx ContextKey = "organization"
	WorkerCtx       ContextKey = "worker"
	ShiftCtx        ContextKey = "shift"
	AssignmentCtx   ContextKey = "assignment"
)
