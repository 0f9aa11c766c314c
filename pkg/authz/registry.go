package authz

const (
	RoleBoardAdmin  = "board-admin"
	RoleBoardViewer = "board-viewer"
	RoleAnonymous   = "anonymous"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
)

const (
	ObjectIAMSession       = "iam.session"
	ObjectScheduleDay      = "schedule.day"
	ObjectScheduleStates   = "schedule.states"
	ObjectScheduleCatalogs = "schedule.catalogs"
	ObjectScheduleRules    = "schedule.rules"
)
