package model

import "github.com/kompox/pgcluster/internal/naming"

// Location is a failure domain (region, availability zone, data centre).
// Its name never changes after creation.
type Location struct {
	name     string
	Settings map[string]any
	group    *Group
}

// Name returns the location name.
func (l *Location) Name() string { return l.name }

// Group returns the variable group owned by the location.
func (l *Location) Group() *Group { return l.group }

// GroupName returns the deterministic name of the location's group.
func (l *Location) GroupName() string { return naming.LocationGroupName(l.name) }

// WitnessOnly reports whether the location holds only witness nodes.
func (l *Location) WitnessOnly() bool {
	v, _ := l.Settings["witness_only"].(bool)
	return v
}

// SetWitnessOnly sets or clears the witness_only flag.
func (l *Location) SetWitnessOnly(on bool) {
	if on {
		l.Settings["witness_only"] = true
		return
	}
	delete(l.Settings, "witness_only")
}

// Subnet returns the subnet assigned to the location, if any.
func (l *Location) Subnet() string {
	s, _ := l.Settings["subnet"].(string)
	return s
}
