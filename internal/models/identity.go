package models

// Identity is the acting user of one request. A dual user holds both a client
// and a tasker reference; ActiveRole says which one acts for this call.
type Identity struct {
	Email      string `json:"email"`
	ClientID   *int64 `json:"client_id,omitempty"`
	TaskerID   *int64 `json:"tasker_id,omitempty"`
	AdminID    *int64 `json:"admin_id,omitempty"`
	ActiveRole Role   `json:"active_role"`
}

func (i Identity) IsDual() bool {
	return i.ClientID != nil && i.TaskerID != nil
}

func (i Identity) Holds(role Role) bool {
	switch role {
	case RoleClient:
		return i.ClientID != nil
	case RoleTasker:
		return i.TaskerID != nil
	case RoleAdmin:
		return i.AdminID != nil
	}
	return false
}

// ActiveID returns the record id of the active role, or 0 if the role is not held.
func (i Identity) ActiveID() int64 {
	var p *int64
	switch i.ActiveRole {
	case RoleClient:
		p = i.ClientID
	case RoleTasker:
		p = i.TaskerID
	case RoleAdmin:
		p = i.AdminID
	}
	if p == nil {
		return 0
	}
	return *p
}

// As returns a copy of i acting as role.
func (i Identity) As(role Role) Identity {
	i.ActiveRole = role
	return i
}
