package models

import "time"

// ClientProfile is what a client record looks like over the wire.
type ClientProfile struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Client) Profile() ClientProfile {
	return ClientProfile{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone, City: c.City, CreatedAt: c.CreatedAt}
}

func (c *Client) Summary() *UserSummary {
	return &UserSummary{ID: c.ID, Name: c.Name, City: c.City}
}

type TaskerProfile struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	City       string     `json:"city"`
	Bio        string     `json:"bio"`
	HasLicense bool       `json:"has_license"`
	Approved   bool       `json:"approved"`
	ApprovedAt *time.Time `json:"approved_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (t *Tasker) Profile() TaskerProfile {
	return TaskerProfile{
		ID: t.ID, Name: t.Name, Email: t.Email, Phone: t.Phone, City: t.City, Bio: t.Bio,
		HasLicense: t.HasLicense, Approved: t.Approved, ApprovedAt: t.ApprovedAt, CreatedAt: t.CreatedAt,
	}
}

func (t *Tasker) Summary() *UserSummary {
	return &UserSummary{ID: t.ID, Name: t.Name, City: t.City}
}

type AdminProfile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a *Admin) Profile() AdminProfile {
	return AdminProfile{ID: a.ID, Name: a.Name, Email: a.Email}
}
