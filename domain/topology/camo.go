package topology

import (
	"context"
	"fmt"

	"github.com/kompox/pgcluster/domain/model"
	"github.com/kompox/pgcluster/internal/logging"
	"github.com/kompox/pgcluster/internal/naming"
)

// Pair is two CAMO partners in the same location.
type Pair [2]*model.Instance

// CAMOCandidates returns, in cluster order, the primary replicated
// instances that have no CAMO partner yet.
func CAMOCandidates(c *model.Cluster) model.Instances {
	return c.Instances().Select(func(i *model.Instance) bool {
		if !i.IsPrimaryReplicated() {
			return false
		}
		_, paired := i.Vars[VarCAMOPartner]
		return !paired
	})
}

// PairCAMO pairs the CAMO candidates and records each partner in the other's
// bdr_node_camo_partner host variable.
//
// The first remaining candidate is paired with the next candidate in the
// same location and both are removed. A candidate with no later partner in
// its location is left unpaired and the walk continues with the one after
// it. Given a@1 b@2 c@1 this pairs (a, c) and leaves b; given a@1 b@1 c@2
// d@2 it pairs (a, b) and (c, d).
func PairCAMO(ctx context.Context, c *model.Cluster) []Pair {
	log := logging.FromContext(ctx)
	rest := CAMOCandidates(c).All()
	var pairs []Pair
	for len(rest) > 0 {
		a := rest[0]
		j := 1
		for j < len(rest) && rest[j].Location() != a.Location() {
			j++
		}
		if j == len(rest) {
			log.Debug(ctx, "no CAMO partner", "instance", a.Name(), "location", a.Location().Name())
			rest = rest[1:]
			continue
		}
		b := rest[j]
		a.SetVar(VarCAMOPartner, b.Name())
		b.SetVar(VarCAMOPartner, a.Name())
		log.Debug(ctx, "CAMO pair", "first", a.Name(), "second", b.Name())
		pairs = append(pairs, Pair{a, b})
		rest = append(rest[1:j:j], rest[j+1:]...)
	}
	return pairs
}

// CommitScope is a commit-guarantee policy for one replication subgroup.
type CommitScope struct {
	Name   string
	Origin string
	Rule   string
}

// CommitScopes builds one CAMO commit scope per subgroup holding a pair and
// records them in the bdr_commit_scopes cluster variable. A subgroup with a
// pair must consist of at most two data nodes and one witness.
func CommitScopes(c *model.Cluster, pairs []Pair) ([]CommitScope, error) {
	var scopes []CommitScope
	seen := map[string]bool{}
	for _, p := range pairs {
		loc := p[0].Location()
		if p[1].Location() != loc {
			return nil, fmt.Errorf("%w: CAMO partners %s and %s are in different locations", model.ErrConfiguration, p[0].Name(), p[1].Name())
		}
		group := naming.SubgroupName(loc.Name())
		if seen[group] {
			continue
		}
		seen[group] = true
		members := c.Instances().InLocation(loc.Name()).WithRole(model.RoleBDR)
		data := members.WithBDRNodeKind(model.NodeKindData).Len()
		witnesses := members.WithBDRNodeKind(model.NodeKindWitness).Len()
		if data > 2 || witnesses > 1 {
			return nil, fmt.Errorf("%w: CAMO group %s has %d data nodes and %d witnesses; at most 2 and 1 are allowed", model.ErrConfiguration, group, data, witnesses)
		}
		scopes = append(scopes, CommitScope{
			Name:   "camo_" + group,
			Origin: group,
			Rule:   fmt.Sprintf("ALL (%s) CAMO DEGRADE ON (timeout=3600s) TO ASYNC", group),
		})
	}
	if len(scopes) > 0 {
		list := make([]any, 0, len(scopes))
		for _, s := range scopes {
			list = append(list, map[string]any{"name": s.Name, "origin": s.Origin, "rule": s.Rule})
		}
		c.Group().Set(VarCommitScopes, list)
	}
	return scopes, nil
}
