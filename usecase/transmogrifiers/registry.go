// Package transmogrifiers holds the concrete changes reconfigure can apply
// to an existing cluster.
package transmogrifiers

import (
	"github.com/kompox/pgcluster/domain/arch"
	"github.com/kompox/pgcluster/internal/transmogrify"
)

// Registry returns the transmogrifier classes known to reconfigure, in
// the order they are queued when several are selected. Upgrades come from
// the catalog: one per architecture with a Next.
func Registry(cat *arch.Catalog) []transmogrify.Class {
	classes := []transmogrify.Class{
		{Name: ProxyRoutingName, New: func() transmogrify.Transmogrifier { return NewProxyRouting(cat) }},
		{Name: RepositoriesName, New: func() transmogrify.Transmogrifier { return NewRepositories(cat) }},
		{Name: PEMName, New: func() transmogrify.Transmogrifier { return NewPEM() }},
	}
	for _, a := range cat.Architectures {
		if a.Next == "" {
			continue
		}
		from, to := a.Tag, a.Next
		classes = append(classes, transmogrify.Class{
			Name: upgradeName(from, to),
			New:  func() transmogrify.Transmogrifier { return NewArchitectureUpgrade(cat, from, to) },
		})
	}
	return classes
}
