package transmogrifiers

import (
	"context"
	"fmt"

	"github.com/kompox/pgcluster/domain/arch"
	"github.com/kompox/pgcluster/domain/model"
	"github.com/kompox/pgcluster/domain/topology"
	"github.com/kompox/pgcluster/internal/transmogrify"
)

const (
	ProxyRoutingName   = "proxy routing"
	optionProxyRouting = "pgd-proxy-routing"
)

// ProxyRouting switches write-leader routing between one global leader
// and one leader per location.
type ProxyRouting struct {
	transmogrify.Base
	catalog *arch.Catalog
}

// NewProxyRouting returns a ProxyRouting transmogrifier.
func NewProxyRouting(cat *arch.Catalog) *ProxyRouting {
	return &ProxyRouting{catalog: cat}
}

func (p *ProxyRouting) Name() string { return ProxyRoutingName }

func (p *ProxyRouting) Options() []transmogrify.Option {
	return []transmogrify.Option{{
		Name:    optionProxyRouting,
		Aliases: []string{"routing"},
		Kind:    transmogrify.KindString,
		Choices: []string{arch.RoutingGlobal, arch.RoutingLocal},
		Usage:   "write leader routing: global or local",
	}}
}

func (p *ProxyRouting) requested() string { return p.String(optionProxyRouting) }

// target is the architecture the cluster will have once any upgrade
// selected alongside has been applied.
func (p *ProxyRouting) target(c *model.Cluster) *arch.Architecture {
	tag := p.String(optionArchitecture)
	if tag == "" {
		tag = c.Architecture()
	}
	a, err := p.catalog.Lookup(tag)
	if err != nil {
		return nil
	}
	return a
}

func (p *ProxyRouting) IsApplicable(c *model.Cluster) bool {
	if !p.Changed(optionProxyRouting) {
		return false
	}
	cur, err := p.catalog.Lookup(c.Architecture())
	if err != nil || !cur.SupportsRouting() {
		return true
	}
	plan, err := topology.LoadGroups(c)
	return err != nil || routingMode(plan, cur) != p.requested()
}

// IsReady holds once the cluster's architecture has routing options,
// which may take an upgrade applied in the same run.
func (p *ProxyRouting) IsReady(c *model.Cluster) bool {
	cur, err := p.catalog.Lookup(c.Architecture())
	return err == nil && cur.SupportsRouting()
}

func (p *ProxyRouting) Check(c *model.Cluster) *transmogrify.CheckResult {
	res := &transmogrify.CheckResult{}
	cur, err := p.catalog.Lookup(c.Architecture())
	if err != nil {
		res.Error("%v", err)
		return res
	}
	if to := p.target(c); !cur.SupportsRouting() && (to == nil || !to.SupportsRouting()) {
		res.Error("%s does not support routing options", c.Architecture())
	}
	if _, ok := c.Group().Get(topology.VarNodeGroups); !ok {
		res.Error("cluster has no %s", topology.VarNodeGroups)
	}
	return res
}

func (p *ProxyRouting) Apply(_ context.Context, c *model.Cluster) error {
	a, err := p.catalog.Lookup(c.Architecture())
	if err != nil {
		return err
	}
	plan, err := topology.LoadGroups(c)
	if err != nil {
		return err
	}
	setRouting(c, plan, a, p.requested())
	topology.SaveGroups(c, plan)
	return nil
}

func (p *ProxyRouting) Description(c *model.Cluster) *transmogrify.ChangeDescription {
	d := transmogrify.NewDescription(fmt.Sprintf("Switch to %s routing", p.requested()))
	if p.requested() == arch.RoutingGlobal {
		d.Add("elect one write leader in the top-level group")
	} else {
		d.Add("elect one write leader in each data location's subgroup")
	}
	return d
}

// routingMode infers the current mode from the top group's options.
func routingMode(plan *topology.GroupPlan, a *arch.Architecture) string {
	if on, _ := plan.Top.Options[a.RoutingKey].(bool); on {
		return arch.RoutingGlobal
	}
	return arch.RoutingLocal
}

// setRouting rewrites the routing options of every group for mode.
func setRouting(c *model.Cluster, plan *topology.GroupPlan, a *arch.Architecture, mode string) {
	global := mode == arch.RoutingGlobal
	if global {
		plan.Top.Options = withRouting(plan.Top.Options, a.RoutingKey, true)
	} else if plan.Top.Options != nil {
		delete(plan.Top.Options, "enable_raft")
		delete(plan.Top.Options, a.RoutingKey)
		if len(plan.Top.Options) == 0 {
			plan.Top.Options = nil
		}
	}
	for k := range plan.Subgroups {
		g := &plan.Subgroups[k]
		on := !global
		if l := c.LocationByName(g.Location); l != nil && l.WitnessOnly() {
			on = false
		}
		g.Options = withRouting(g.Options, a.RoutingKey, on)
	}
}

func withRouting(opts map[string]any, key string, on bool) map[string]any {
	if opts == nil {
		opts = map[string]any{}
	}
	opts["enable_raft"] = on
	opts[key] = on
	return opts
}
