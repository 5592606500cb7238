package domain

import (
	"time"

	"github.com/samber/lo"
)

// Cluster is a named set of groups that relay each other's messages.
// Membership only grows: there is no removal.
type Cluster struct {
	Name      string
	Groups    []Group
	CreatedAt time.Time
}

func NewCluster(name string, at time.Time) Cluster {
	return Cluster{Name: name, Groups: nil, CreatedAt: at}
}

func (c Cluster) Has(g Group) bool {
	return lo.Contains(c.Groups, g)
}

// Add is a set-union insert. It reports whether the member set changed.
func (c *Cluster) Add(g Group) bool {
	if c.Has(g) {
		return false
	}
	c.Groups = append(c.Groups, g)
	return true
}

// Others returns every member except g.
func (c Cluster) Others(g Group) []Group {
	return lo.Filter(c.Groups, func(item Group, _ int) bool {
		return item != g
	})
}
