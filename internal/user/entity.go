// entity.go

package user

import (
	"time"

	"github.com/communityshare/server/internal/resource"
)

const (
	RoleEducator         = "educator"
	RoleCommunityPartner = "community-partner"
)

type User struct {
	ID            int64      `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Email         string     `json:"email" db:"email"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	Administrator bool       `json:"is_administrator" db:"is_administrator"`
	Active        bool       `json:"active" db:"active"`
	DateCreated   time.Time  `json:"date_created" db:"date_created"`
	LastActive    *time.Time `json:"last_active" db:"last_active"`
}

func (u *User) EntityID() int64 { return u.ID }
func (u *User) IsActive() bool  { return u.Active }
func (u *User) Deactivate()     { u.Active = false }

func (u *User) Requester() *resource.Requester {
	return &resource.Requester{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Administrator: u.Administrator,
	}
}
