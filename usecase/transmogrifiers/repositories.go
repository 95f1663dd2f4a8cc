package transmogrifiers

import (
	"context"
	"slices"
	"strings"

	"github.com/kompox/pgcluster/domain/arch"
	"github.com/kompox/pgcluster/domain/model"
	"github.com/kompox/pgcluster/domain/topology"
	"github.com/kompox/pgcluster/internal/transmogrify"
)

const (
	RepositoriesName   = "repositories"
	optionRepositories = "edb-repositories"
)

// Repositories rewrites the package repository selection.
type Repositories struct {
	transmogrify.Base
	catalog *arch.Catalog
}

// NewRepositories returns a standalone Repositories transmogrifier.
func NewRepositories(cat *arch.Catalog) *Repositories {
	return &Repositories{catalog: cat}
}

func (r *Repositories) Name() string { return RepositoriesName }

func (r *Repositories) Options() []transmogrify.Option {
	return []transmogrify.Option{{
		Name:    optionRepositories,
		Aliases: []string{"repositories"},
		Kind:    transmogrify.KindStringList,
		Usage:   "package repositories to install from",
	}}
}

func (r *Repositories) requested() []string { return r.StringList(optionRepositories) }

func (r *Repositories) IsApplicable(c *model.Cluster) bool {
	return r.Changed(optionRepositories) && !slices.Equal(r.requested(), topology.Repositories(c))
}

// Check reports every unknown repository name at once.
func (r *Repositories) Check(c *model.Cluster) *transmogrify.CheckResult {
	res := &transmogrify.CheckResult{}
	repos := r.requested()
	if len(repos) == 0 {
		res.Error("at least one repository is required")
	}
	for _, name := range topology.UnknownRepositories(r.catalog, repos) {
		res.Error("unknown repository %q (known: %s)", name, strings.Join(r.catalog.RepositoryNames(), ", "))
	}
	return res
}

func (r *Repositories) Apply(_ context.Context, c *model.Cluster) error {
	topology.SetRepositories(c, r.requested())
	return nil
}

func (r *Repositories) Description(c *model.Cluster) *transmogrify.ChangeDescription {
	d := transmogrify.NewDescription("Change package repositories")
	if cur := topology.Repositories(c); len(cur) > 0 {
		d.Add("from: %s", strings.Join(cur, ", "))
	}
	d.Add("to: %s", strings.Join(r.requested(), ", "))
	return d
}
