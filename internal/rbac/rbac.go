package rbac

type Role string
type Action string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

const (
	ActionView            Action = "view"
	ActionEditCards       Action = "edit_cards"
	ActionManageBoards    Action = "manage_boards"
	ActionManageLabels    Action = "manage_labels"
	ActionManageMembers   Action = "manage_members"
	ActionManageWorkspace Action = "manage_workspace"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleMember:
		return action == ActionView || action == ActionEditCards || action == ActionManageBoards || action == ActionManageLabels
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleMember, RoleAdmin:
		return Role(role)
	default:
		return RoleMember
	}
}
