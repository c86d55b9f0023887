package auth

import (
	"github.com/DoyleJ11/tier-auction/internal/engine"
	"github.com/DoyleJ11/tier-auction/internal/roster"
)

type Role string

const (
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
	RoleViewer  Role = "viewer"
)

type Identity struct {
	Role      Role             `json:"role"`
	ManagerID engine.ManagerID `json:"manager_id,omitempty"`
	Name      string           `json:"name"`
}

var Viewer = Identity{Role: RoleViewer, Name: "viewer"}

// Resolver maps opaque access keys to identities. It does not authenticate
// anything beyond key equality.
type Resolver struct {
	adminKey string
	managers map[string]roster.ManagerSeed
}

func NewResolver(r roster.Roster) *Resolver {
	res := &Resolver{adminKey: r.AdminKey, managers: make(map[string]roster.ManagerSeed, len(r.Managers))}
	for _, m := range r.Managers {
		res.managers[m.Key] = m
	}
	return res
}

// Resolve never fails: unknown or empty keys are viewers.
func (r *Resolver) Resolve(key string) Identity {
	if key == "" {
		return Viewer
	}
	if m, ok := r.managers[key]; ok {
		return Identity{Role: RoleManager, ManagerID: engine.ManagerID(m.ID), Name: m.Name}
	}
	if key == r.adminKey {
		return Identity{Role: RoleAdmin, Name: "admin"}
	}
	return Viewer
}
