package policy

import (
	"slices"

	"github.com/roach88/shortlist/internal/ir"
)

// Policy is a compiled group policy.
// The zero value is Open(): nobody is privileged and any category is allowed.
type Policy struct {
	Name        string
	Admins      []ir.ActorID
	Categories  []string
	DefaultTime string
}

// Open returns the policy used when no document is configured.
func Open() *Policy {
	return &Policy{}
}

// IsPrivileged reports whether actor is a group admin.
func (p *Policy) IsPrivileged(actor ir.ActorID) bool {
	return p != nil && slices.Contains(p.Admins, actor)
}

// AllowsCategory reports whether proposals may use category. An empty
// category list allows everything; an uncategorized proposal is always
// allowed.
func (p *Policy) AllowsCategory(category string) bool {
	if p == nil || len(p.Categories) == 0 || category == "" {
		return true
	}
	return slices.Contains(p.Categories, category)
}

// DefaultScheduleTime returns the HH:MM used when a scheduling names no time.
func (p *Policy) DefaultScheduleTime() string {
	if p == nil {
		return ""
	}
	return p.DefaultTime
}
