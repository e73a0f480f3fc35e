package repository

// Códigos de permiso que gobiernan la superficie /rbac.
const (
	PermRolesRead        = "rbac.roles.read"
	PermRolesWrite       = "rbac.roles.write"
	PermPermissionsRead  = "rbac.permissions.read"
	PermPermissionsWrite = "rbac.permissions.write"
	PermAssignmentsRead  = "rbac.assignments.read"
	PermAssignmentsWrite = "rbac.assignments.write"
	PermMembersWrite     = "rbac.members.write"
)

// PlatformAdminRole es el rol de sistema sembrado con todos los permisos rbac.
const PlatformAdminRole = "platform_admin"

// SeedCategory agrupa los permisos sembrados.
const SeedCategory = "rbac"

// SeedPermissions es el catálogo sembrado en scope platform. Debe coincidir
// con migrations/postgres/sql/0002_rbac.sql.
var SeedPermissions = []PermissionInput{
	{Code: PermRolesRead, Category: SeedCategory, Name: "Read roles", Description: "List and read roles"},
	{Code: PermRolesWrite, Category: SeedCategory, Name: "Write roles", Description: "Create, update and delete roles"},
	{Code: PermPermissionsRead, Category: SeedCategory, Name: "Read permissions", Description: "List and read permissions"},
	{Code: PermPermissionsWrite, Category: SeedCategory, Name: "Write permissions", Description: "Create, update, delete and grant permissions"},
	{Code: PermAssignmentsRead, Category: SeedCategory, Name: "Read assignments", Description: "Read role assignments and effective permissions"},
	{Code: PermAssignmentsWrite, Category: SeedCategory, Name: "Write assignments", Description: "Replace role assignments"},
	{Code: PermMembersWrite, Category: SeedCategory, Name: "Manage members", Description: "Add and remove tenant members"},
}
