// entity.go

package institution

import "time"

const maxNameLength = 50

type Institution struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Type        string    `json:"institution_type" db:"institution_type"`
	Description string    `json:"description" db:"description"`
	Active      bool      `json:"active" db:"active"`
	DateCreated time.Time `json:"date_created" db:"date_created"`
}

func (i *Institution) EntityID() int64 { return i.ID }
func (i *Institution) IsActive() bool  { return i.Active }
func (i *Institution) Deactivate()     { i.Active = false }

// Association links a user to an institution in a given role, e.g.
// "teacher at Lincoln High".
type Association struct {
	ID            int64     `json:"id" db:"id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	InstitutionID int64     `json:"institution_id" db:"institution_id"`
	Role          string    `json:"role" db:"role"`
	Active        bool      `json:"active" db:"active"`
	DateCreated   time.Time `json:"date_created" db:"date_created"`
}

func (a *Association) EntityID() int64 { return a.ID }
func (a *Association) IsActive() bool  { return a.Active }
func (a *Association) Deactivate()     { a.Active = false }
