package model

// Roles carried in the "role" claim of access tokens.  Identity is
// issued by an external session service; this service only verifies
// tokens and reads the subject and role.
const (
	RoleCustomer = "CUSTOMER"
	RoleOwner    = "OWNER"
)
