package topology

import (
	"fmt"

	"github.com/kompox/pgcluster/domain/model"
)

// Attachment describes an auxiliary service. Instances matching Match get
// CompanionRole; if ServiceRole is set and no instance has it yet, one
// dedicated instance named ServiceName is created for it.
type Attachment struct {
	Name          string
	Match         func(*model.Instance) bool
	CompanionRole string
	ServiceRole   string
	ServiceName   string
}

// NeedsService reports whether Attach would create a service instance.
func (a Attachment) NeedsService(c *model.Cluster) bool {
	return a.ServiceRole != "" && c.Instances().WithRole(a.ServiceRole).Len() == 0
}

// PEMAttachment monitors every Postgres and barman instance with a PEM
// agent and adds one PEM server.
func PEMAttachment(serverName string) Attachment {
	return Attachment{
		Name: "pem",
		Match: func(i *model.Instance) bool {
			return i.IsPostgres() || i.HasRole(model.RoleBarman)
		},
		CompanionRole: model.RolePEMAgent,
		ServiceRole:   model.RolePEMServer,
		ServiceName:   serverName,
	}
}

// PgBackupAPIAttachment adds the backup API to every barman instance.
func PgBackupAPIAttachment() Attachment {
	return Attachment{
		Name:          "pg-backup-api",
		Match:         func(i *model.Instance) bool { return i.HasRole(model.RoleBarman) },
		CompanionRole: model.RolePgBackupAPI,
	}
}

// Attach applies each attachment in order and returns the service
// instances it created. A service instance gets the next node id and is
// placed in the first location. Existing companion roles and services are
// left alone, so attaching twice changes nothing.
func Attach(c *model.Cluster, atts []Attachment) ([]*model.Instance, error) {
	var created []*model.Instance
	for _, a := range atts {
		if a.CompanionRole != "" && a.Match != nil {
			c.Instances().Select(a.Match).AddRole(a.CompanionRole)
		}
		if !a.NeedsService(c) {
			continue
		}
		locs := c.Locations()
		if len(locs) == 0 {
			return nil, fmt.Errorf("%w: %s: cluster has no locations", model.ErrConfiguration, a.Name)
		}
		if a.ServiceName == "" {
			return nil, fmt.Errorf("%w: %s: no name for the %s instance", model.ErrConfiguration, a.Name, a.ServiceRole)
		}
		inst, err := c.AddInstance(a.ServiceName, locs[0].Name(), model.InstanceOptions{
			Roles: []string{a.ServiceRole},
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.Name, err)
		}
		created = append(created, inst)
	}
	return created, nil
}

// AssociateBackups links each location's first barman instance to the first
// data instance of that location without a backup setting. Witness,
// replica and subscriber-only instances are never backed up directly, and a
// location whose barman already backs up an instance is skipped.
func AssociateBackups(c *model.Cluster) {
	all := c.Instances()
	for _, loc := range c.Locations() {
		here := all.InLocation(loc.Name())
		barman := here.WithRole(model.RoleBarman).First()
		if barman == nil || backedUp(here, barman.Name()) {
			continue
		}
		target := here.Select(func(i *model.Instance) bool {
			if !i.IsPostgres() || i.HasAnyRole(model.RoleWitness, model.RoleReplica, model.RoleSubscriberOnly) {
				return false
			}
			_, has := i.Settings["backup"]
			return !has
		}).First()
		if target == nil {
			continue
		}
		target.Settings["backup"] = barman.Name()
	}
}

func backedUp(in model.Instances, barman string) bool {
	return in.Select(func(i *model.Instance) bool { return i.Settings["backup"] == barman }).Len() > 0
}
