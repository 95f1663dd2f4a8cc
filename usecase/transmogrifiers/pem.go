package transmogrifiers

import (
	"context"
	"strings"

	"github.com/kompox/pgcluster/domain/model"
	"github.com/kompox/pgcluster/domain/topology"
	"github.com/kompox/pgcluster/internal/naming"
	"github.com/kompox/pgcluster/internal/transmogrify"
)

const (
	PEMName             = "pem"
	optionEnablePEM     = "enable-pem"
	optionPEMServerName = "pem-server-name"
)

// PEM adds a PEM server instance and a PEM agent on every monitored
// instance.
type PEM struct {
	transmogrify.Base
}

// NewPEM returns a PEM transmogrifier.
func NewPEM() *PEM { return &PEM{} }

func (p *PEM) Name() string { return PEMName }

func (p *PEM) Options() []transmogrify.Option {
	return []transmogrify.Option{
		{Name: optionEnablePEM, Kind: transmogrify.KindBool, Usage: "add PEM monitoring"},
		{Name: optionPEMServerName, Kind: transmogrify.KindString, Default: "pemserver", Usage: "name of the PEM server instance"},
	}
}

func (p *PEM) attachment() topology.Attachment {
	return topology.PEMAttachment(p.String(optionPEMServerName))
}

// unmonitored returns the instances that should run an agent and do not.
func (p *PEM) unmonitored(c *model.Cluster) model.Instances {
	att := p.attachment()
	return c.Instances().Select(att.Match).WithoutRole(att.CompanionRole)
}

func (p *PEM) IsApplicable(c *model.Cluster) bool {
	if !p.Bool(optionEnablePEM) {
		return false
	}
	return p.attachment().NeedsService(c) || p.unmonitored(c).Len() > 0
}

func (p *PEM) Check(c *model.Cluster) *transmogrify.CheckResult {
	res := &transmogrify.CheckResult{}
	if !p.attachment().NeedsService(c) {
		return res
	}
	name := p.String(optionPEMServerName)
	if err := naming.ValidateHostname(name); err != nil {
		res.Error("%v", err)
	}
	if c.InstanceByName(name) != nil {
		res.Error("instance %s already exists; choose another --%s", name, optionPEMServerName)
	}
	if len(c.Locations()) == 0 {
		res.Error("cluster has no locations")
	}
	return res
}

func (p *PEM) Apply(_ context.Context, c *model.Cluster) error {
	_, err := topology.Attach(c, []topology.Attachment{p.attachment()})
	return err
}

func (p *PEM) Description(c *model.Cluster) *transmogrify.ChangeDescription {
	d := transmogrify.NewDescription("Enable PEM monitoring")
	if p.attachment().NeedsService(c) {
		loc := ""
		if locs := c.Locations(); len(locs) > 0 {
			loc = locs[0].Name()
		}
		d.Add("add PEM server %s in %s with node id %d", p.String(optionPEMServerName), loc, c.NextNodeID())
	}
	if u := p.unmonitored(c); u.Len() > 0 {
		d.Add("add role %s to %s", model.RolePEMAgent, strings.Join(u.Names(), ", "))
	}
	return d
}
