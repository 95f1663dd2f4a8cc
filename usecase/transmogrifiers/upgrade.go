package transmogrifiers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kompox/pgcluster/domain/arch"
	"github.com/kompox/pgcluster/domain/model"
	"github.com/kompox/pgcluster/domain/topology"
	"github.com/kompox/pgcluster/internal/transmogrify"
)

const (
	optionArchitecture = "architecture"
	varVersionPin      = "bdr_version_pin"
)

func upgradeName(from, to arch.Tag) string {
	return fmt.Sprintf("upgrade %s to %s", from, to)
}

// ArchitectureUpgrade converts a cluster from one architecture to the next
// one in the catalog. Longer upgrades are chains of these steps, each
// applied once the previous one has converted the cluster.
type ArchitectureUpgrade struct {
	transmogrify.Base
	catalog *arch.Catalog
	from    *arch.Architecture
	to      *arch.Architecture
}

// NewArchitectureUpgrade returns the from→to step. It requires a
// Repositories change that defaults to the target's repositories.
func NewArchitectureUpgrade(cat *arch.Catalog, from, to arch.Tag) *ArchitectureUpgrade {
	u := &ArchitectureUpgrade{catalog: cat}
	u.from, _ = cat.Lookup(string(from))
	u.to, _ = cat.Lookup(string(to))
	repos := NewRepositories(cat)
	if u.to != nil {
		repos.SetDefault(optionRepositories, slices.Clone(u.to.DefaultRepositories))
	}
	u.Require(repos)
	return u
}

func (u *ArchitectureUpgrade) Name() string { return upgradeName(u.from.Tag, u.to.Tag) }

func (u *ArchitectureUpgrade) Options() []transmogrify.Option {
	return []transmogrify.Option{{
		Name:     optionArchitecture,
		Kind:     transmogrify.KindString,
		Required: true,
		Usage:    "architecture to upgrade the cluster to",
	}}
}

// IsApplicable reports whether this step lies on the upgrade path from the
// cluster's architecture to the requested one.
func (u *ArchitectureUpgrade) IsApplicable(c *model.Cluster) bool {
	target := arch.Tag(u.String(optionArchitecture))
	cur := arch.Tag(c.Architecture())
	onPath := false
	for range u.catalog.Architectures {
		if cur == target {
			break
		}
		a, err := u.catalog.Lookup(string(cur))
		if err != nil || a.Next == "" {
			return false
		}
		if cur == u.from.Tag && a.Next == u.to.Tag {
			onPath = true
		}
		cur = a.Next
	}
	return cur == target && onPath
}

// IsReady waits for earlier steps of a chain to reach the source
// architecture.
func (u *ArchitectureUpgrade) IsReady(c *model.Cluster) bool {
	return c.Architecture() == string(u.from.Tag)
}

func (u *ArchitectureUpgrade) Check(c *model.Cluster) *transmogrify.CheckResult {
	res := &transmogrify.CheckResult{}
	pg := topology.CurrentVersions(c).Postgres
	if pg == "" {
		res.Error("cluster has no %s", topology.VarPostgresVersion)
	} else if _, err := u.to.Versions.Resolve(pg, ""); err != nil {
		res.Error("postgres %s is not supported by %s", pg, u.to.Tag)
	}
	if _, ok := c.Group().Get(varVersionPin); ok {
		res.Error("remove %s before upgrading to %s", varVersionPin, u.to.Tag)
	}
	for _, name := range c.Instances().WithHostvar(varVersionPin).Names() {
		res.Error("remove %s from %s before upgrading to %s", varVersionPin, name, u.to.Tag)
	}
	if u.to.ProxyRole == "" && u.from.ProxyRole != "" {
		dedicated := u.proxies(c).WithoutRole(model.RoleBDR)
		if dedicated.Len() > 0 {
			res.Error("%s has no %s instances; remove %s first", u.to.Tag, u.from.ProxyRole, strings.Join(dedicated.Names(), ", "))
		}
	}
	if _, ok := c.Group().Get(topology.VarNodeGroups); !ok {
		res.Warning("cluster has no %s; routing options are not converted", topology.VarNodeGroups)
	}
	return res
}

// proxies returns the instances that will hold the source architecture's
// proxy role when this step runs. Earlier steps of a chain rename proxy
// roles, so the roles of every architecture on the way count.
func (u *ArchitectureUpgrade) proxies(c *model.Cluster) model.Instances {
	var roles []string
	cur := arch.Tag(c.Architecture())
	for range u.catalog.Architectures {
		a, err := u.catalog.Lookup(string(cur))
		if err != nil {
			break
		}
		if a.ProxyRole == "" {
			roles = roles[:0]
		} else {
			roles = append(roles, a.ProxyRole)
		}
		if cur == u.from.Tag || a.Next == "" {
			break
		}
		cur = a.Next
	}
	if u.from.ProxyRole != "" && !slices.Contains(roles, u.from.ProxyRole) {
		roles = append(roles, u.from.ProxyRole)
	}
	if len(roles) == 0 {
		return model.NewInstances()
	}
	return c.Instances().Select(func(i *model.Instance) bool { return i.HasAnyRole(roles...) })
}

func (u *ArchitectureUpgrade) Apply(_ context.Context, c *model.Cluster) error {
	pg := topology.CurrentVersions(c).Postgres
	p, err := u.to.Versions.Resolve(pg, "")
	if err != nil {
		return err
	}
	c.SetArchitecture(string(u.to.Tag))
	topology.SetVersions(c, p)

	if u.from.ProxyRole != "" {
		for _, i := range c.Instances().WithRole(u.from.ProxyRole).All() {
			if u.to.ProxyRole == "" {
				i.RemoveRole(u.from.ProxyRole)
			} else {
				i.ReplaceRole(u.from.ProxyRole, u.to.ProxyRole)
			}
		}
	}

	if _, ok := c.Group().Get(topology.VarNodeGroups); ok {
		plan, err := topology.LoadGroups(c)
		if err != nil {
			return err
		}
		u.convertGroups(c, plan)
		topology.SaveGroups(c, plan)
	}

	for _, v := range u.to.ObsoleteVars {
		c.Group().Delete(v)
		for _, i := range c.Instances().All() {
			i.DeleteVar(v)
		}
	}
	return nil
}

// convertGroups renames the routing key, or adds routing options when the
// source architecture had none.
func (u *ArchitectureUpgrade) convertGroups(c *model.Cluster, plan *topology.GroupPlan) {
	if !u.to.SupportsRouting() {
		return
	}
	if u.from.SupportsRouting() {
		rename := func(g *topology.GroupSpec) {
			if v, ok := g.Options[u.from.RoutingKey]; ok && u.from.RoutingKey != u.to.RoutingKey {
				g.Options[u.to.RoutingKey] = v
				delete(g.Options, u.from.RoutingKey)
			}
		}
		rename(&plan.Top)
		for k := range plan.Subgroups {
			rename(&plan.Subgroups[k])
		}
		return
	}
	setRouting(c, plan, u.to, u.to.DefaultRoutingMode)
}

func (u *ArchitectureUpgrade) Description(c *model.Cluster) *transmogrify.ChangeDescription {
	d := transmogrify.NewDescription(fmt.Sprintf("Upgrade architecture from %s to %s", u.from.Tag, u.to.Tag))
	if p, err := u.to.Versions.Resolve(topology.CurrentVersions(c).Postgres, ""); err == nil && p.Replication != "" {
		d.Add("set replication version to %s", p.Replication)
	}
	if u.from.ProxyRole != "" {
		if proxies := u.proxies(c); proxies.Len() > 0 {
			if u.to.ProxyRole == "" {
				d.Add("remove role %s from %s", u.from.ProxyRole, strings.Join(proxies.Names(), ", "))
			} else {
				d.Add("replace role %s with %s on %s", u.from.ProxyRole, u.to.ProxyRole, strings.Join(proxies.Names(), ", "))
			}
		}
	}
	switch {
	case !u.to.SupportsRouting():
	case !u.from.SupportsRouting():
		d.Add("add %s routing options to the replication groups", u.to.DefaultRoutingMode)
	case u.from.RoutingKey != u.to.RoutingKey:
		d.Add("rename group option %s to %s", u.from.RoutingKey, u.to.RoutingKey)
	}
	var obsolete []string
	for _, v := range u.to.ObsoleteVars {
		if _, ok := c.Group().Get(v); ok || c.Instances().WithHostvar(v).Len() > 0 {
			obsolete = append(obsolete, v)
		}
	}
	if len(obsolete) > 0 {
		d.Add("remove obsolete variables: %s", strings.Join(obsolete, ", "))
	}
	return d
}
