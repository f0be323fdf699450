// entity.go

package search

import "time"

// Search is a posting: a user in one role looking for partners in
// another, e.g. an educator looking for community partners.
type Search struct {
	ID             int64     `json:"id" db:"id"`
	SearcherUserID int64     `json:"searcher_user_id" db:"searcher_user_id"`
	SearcherRole   string    `json:"searcher_role" db:"searcher_role"`
	TargetRole     string    `json:"target_role" db:"target_role"`
	Description    string    `json:"description" db:"description"`
	Active         bool      `json:"active" db:"active"`
	DateCreated    time.Time `json:"date_created" db:"date_created"`
}

func (s *Search) EntityID() int64 { return s.ID }
func (s *Search) IsActive() bool  { return s.Active }
func (s *Search) Deactivate()     { s.Active = false }
