package topology

import (
	"fmt"
	"net/netip"
	"slices"

	"github.com/kompox/pgcluster/domain/model"
)

// BuildLocations adds one location per name, in order, and assigns each
// the subnet at the same index. witnessOnly, if not empty, names a location
// (which may or may not be among names) that holds only a witness; it is
// added last if it is not in names.
func BuildLocations(c *model.Cluster, names []string, witnessOnly string, subnets []netip.Prefix) error {
	all := names
	if witnessOnly != "" && c.LocationByName(witnessOnly) == nil && !slices.Contains(names, witnessOnly) {
		all = append(append([]string{}, names...), witnessOnly)
	}
	if len(all) == 0 {
		return fmt.Errorf("%w: at least one location is required", model.ErrConfiguration)
	}
	if len(subnets) != 0 && len(subnets) < len(all) {
		return fmt.Errorf("%w: %d locations but only %d subnets", model.ErrInternal, len(all), len(subnets))
	}
	for i, name := range all {
		settings := map[string]any{}
		if len(subnets) != 0 {
			settings["subnet"] = subnets[i].String()
		}
		l, err := c.AddLocation(name, settings, nil)
		if err != nil {
			return err
		}
		if name == witnessOnly {
			l.SetWitnessOnly(true)
		}
	}
	return nil
}

// LocationCount returns how many locations BuildLocations will create.
func LocationCount(names []string, witnessOnly string) int {
	if witnessOnly != "" && !slices.Contains(names, witnessOnly) {
		return len(names) + 1
	}
	return len(names)
}
