// Package naming derives the deterministic names used throughout a cluster
// configuration (variable groups, replication groups) and validates the names
// users supply for clusters, locations and instances. Keeping the rules here
// lets the data model, the resolver and the transmogrifiers agree on them.
package naming

import (
	"strings"
)

// Sanitize lowercases s and replaces every character outside [a-z0-9_] with
// an underscore, so the result is usable as an identifier in Postgres and as
// an inventory group name.
//
//	Sanitize("Speedy-Gonzales") == "speedy_gonzales"
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// LocationGroupName returns the name of the variable group owned by the
// location with the given name.
func LocationGroupName(location string) string {
	return "location_" + Sanitize(location)
}

// TopGroupName returns the name of the top-level replication group of a
// cluster.
func TopGroupName(cluster string) string {
	return Sanitize(cluster)
}

// SubgroupName returns the name of the replication subgroup created for the
// given location.
func SubgroupName(location string) string {
	return Sanitize(location) + "_subgroup"
}
