package model

// PermissionGroup lists the grantable actions on one resource.
type PermissionGroup struct {
	Resource   string
	Add        string
	Edit       string
	GetAll     string
	GetDetails string
	Delete     string
}

func newPermissionGroup(singular, plural string) PermissionGroup {
	return PermissionGroup{
		Resource:   plural,
		Add:        "add_" + singular,
		Edit:       "edit_" + singular,
		GetAll:     "get_all_" + plural,
		GetDetails: "get_details_" + singular,
		Delete:     "delete_" + singular,
	}
}

// All returns every identifier of the group.
func (g PermissionGroup) All() []string {
	return []string{g.Add, g.Edit, g.GetAll, g.GetDetails, g.Delete}
}

var (
	RolePermissions    = newPermissionGroup("role", "roles")
	UserPermissions    = newPermissionGroup("user", "users")
	ProjectPermissions = newPermissionGroup("project", "projects")
	TaskPermissions    = newPermissionGroup("task", "tasks")
	CommentPermissions = newPermissionGroup("comment", "comments")
)

// PermissionCatalog is the complete set of permission groups known to the system.
var PermissionCatalog = []PermissionGroup{
	RolePermissions,
	UserPermissions,
	ProjectPermissions,
	TaskPermissions,
	CommentPermissions,
}
