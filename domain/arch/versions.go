package arch

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/kompox/pgcluster/domain/model"
)

// VersionPair is a Postgres major version and the matching replication
// (BDR/PGD) major version. Replication is empty for architectures without a
// replication extension.
type VersionPair struct {
	Postgres    string
	Replication string
}

func (p VersionPair) String() string {
	if p.Replication == "" {
		return "postgres " + p.Postgres
	}
	return fmt.Sprintf("postgres %s with replication %s", p.Postgres, p.Replication)
}

// VersionMatrix is the version compatibility table of one architecture.
type VersionMatrix struct {
	Valid   []VersionPair
	Default VersionPair
	// ReplicationByPostgres gives the replication version to use when only
	// the Postgres version is known.
	ReplicationByPostgres map[string]string
	// PostgresByReplication gives the Postgres version to use when only the
	// replication version is known.
	PostgresByReplication map[string]string
}

// Contains reports whether p is a valid pair.
func (m *VersionMatrix) Contains(p VersionPair) bool { return slices.Contains(m.Valid, p) }

// Resolve fills in whichever of postgres and replication is empty and checks
// that the result is a valid pair.
//
// When both are empty the matrix default is used. When one is given, the
// other comes from the matching default map; if the map has no entry, the
// valid pair with the highest other version is chosen.
func (m *VersionMatrix) Resolve(postgres, replication string) (VersionPair, error) {
	var p VersionPair
	switch {
	case postgres != "" && replication != "":
		p = VersionPair{Postgres: postgres, Replication: replication}
	case postgres == "" && replication == "":
		p = m.Default
	case postgres != "":
		p.Postgres = postgres
		if r, ok := m.ReplicationByPostgres[postgres]; ok {
			p.Replication = r
		} else {
			p.Replication = m.highest(func(v VersionPair) (bool, string) { return v.Postgres == postgres, v.Replication })
		}
	default:
		p.Replication = replication
		if pg, ok := m.PostgresByReplication[replication]; ok {
			p.Postgres = pg
		} else {
			p.Postgres = m.highest(func(v VersionPair) (bool, string) { return v.Replication == replication, v.Postgres })
		}
	}
	if !m.Contains(p) {
		return VersionPair{}, fmt.Errorf("%w: postgres version %q is not compatible with replication version %q", model.ErrConfiguration, p.Postgres, p.Replication)
	}
	return p, nil
}

// highest returns the largest value picked from the pairs matched by fn, or
// "" if none match.
func (m *VersionMatrix) highest(fn func(VersionPair) (bool, string)) string {
	best := ""
	for _, v := range m.Valid {
		ok, val := fn(v)
		if ok && (best == "" || versionLess(best, val)) {
			best = val
		}
	}
	return best
}

func versionLess(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return x < y
	}
	return a < b
}
