package model

// Role is a named bundle of permission identifiers.
type Role struct {
	BaseModel
	Name        string        `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string        `gorm:"type:varchar(250)" json:"description"`
	Permissions PermissionSet `gorm:"type:text;not null" json:"permissions"`
}

// Role names used by the seeder and by user registration.
const (
	RoleSuperAdmin = "SuperAdmin"
	RoleViewer     = "Viewer"
)

// DefaultRole describes a role reconciled at bootstrap.
type DefaultRole struct {
	Name        string
	Description string
	Permissions PermissionSet
}

func concat(groups ...[]string) PermissionSet {
	var codes []string
	for _, g := range groups {
		codes = append(codes, g...)
	}
	return NewPermissionSet(codes...)
}

// DefaultRoles defines the default roles in the system, in reconciliation order.
var DefaultRoles = []DefaultRole{
	{
		Name:        RoleSuperAdmin,
		Description: "Admin with all roles and permissions across the system",
		Permissions: concat(
			RolePermissions.All(),
			UserPermissions.All(),
			ProjectPermissions.All(),
			TaskPermissions.All(),
			CommentPermissions.All(),
		),
	},
	{
		Name:        "Admin",
		Description: "Manages projects, tasks, users and comments",
		Permissions: concat(
			UserPermissions.All(),
			ProjectPermissions.All(),
			TaskPermissions.All(),
			CommentPermissions.All(),
		),
	},
	{
		Name:        "ProjectManager",
		Description: "Manages projects and teams",
		Permissions: concat(
			ProjectPermissions.All(),
			TaskPermissions.All(),
			[]string{UserPermissions.GetDetails, UserPermissions.GetAll},
		),
	},
	{
		Name:        "Editor",
		Description: "Edit projects and comments",
		Permissions: NewPermissionSet(
			ProjectPermissions.Edit,
			TaskPermissions.Edit,
			CommentPermissions.Edit,
		),
	},
	{
		Name:        "Contributor",
		Description: "Adds and edits tasks, and comments",
		Permissions: NewPermissionSet(
			ProjectPermissions.GetDetails,
			TaskPermissions.Add,
			TaskPermissions.Edit,
			CommentPermissions.Add,
			CommentPermissions.GetDetails,
		),
	},
	{
		Name:        RoleViewer,
		Description: "Read-only access",
		Permissions: NewPermissionSet(
			ProjectPermissions.GetAll,
			ProjectPermissions.GetDetails,
			TaskPermissions.GetAll,
			TaskPermissions.GetDetails,
			CommentPermissions.GetAll,
			CommentPermissions.GetDetails,
		),
	},
	{
		Name:        "RoleManager",
		Description: "Manages roles",
		Permissions: NewPermissionSet(RolePermissions.All()...),
	},
}
