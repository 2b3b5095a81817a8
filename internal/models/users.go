package models

import "time"

type Client struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	City         string    `json:"city"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *Client) GetID() int64              { return c.ID }
func (c *Client) SetID(id int64)            { c.ID = id }
func (c *Client) SetCreatedAt(at time.Time) { c.CreatedAt = at }
func (c *Client) SetUpdatedAt(at time.Time) { c.UpdatedAt = at }

// Tasker is a service provider. Only approved taskers may apply, be invited or be assigned.
type Tasker struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	City         string     `json:"city"`
	Bio          string     `json:"bio"`
	HasLicense   bool       `json:"has_license"`
	Approved     bool       `json:"approved"`
	ApprovedAt   *time.Time `json:"approved_at"`
	PasswordHash string     `json:"password_hash"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (t *Tasker) GetID() int64              { return t.ID }
func (t *Tasker) SetID(id int64)            { t.ID = id }
func (t *Tasker) SetCreatedAt(at time.Time) { t.CreatedAt = at }
func (t *Tasker) SetUpdatedAt(at time.Time) { t.UpdatedAt = at }

type Admin struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a *Admin) GetID() int64              { return a.ID }
func (a *Admin) SetID(id int64)            { a.ID = id }
func (a *Admin) SetCreatedAt(at time.Time) { a.CreatedAt = at }
func (a *Admin) SetUpdatedAt(at time.Time) { a.UpdatedAt = at }

// UserSummary is the public view attached to listings (never carries credentials).
type UserSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}

type PasswordResetToken struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (p *PasswordResetToken) GetID() int64              { return p.ID }
func (p *PasswordResetToken) SetID(id int64)            { p.ID = id }
func (p *PasswordResetToken) SetCreatedAt(at time.Time) { p.CreatedAt = at }
func (p *PasswordResetToken) SetUpdatedAt(at time.Time) { p.UpdatedAt = at }
