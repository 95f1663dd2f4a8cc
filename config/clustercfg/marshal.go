package clustercfg

import (
	"bytes"
	"fmt"
	"slices"
	"sort"

	"github.com/kompox/pgcluster/domain/model"
	"gopkg.in/yaml.v3"
)

// Marshal encodes c as config.yml. If original is the YAML tree the cluster
// was loaded from, mapping keys are reordered to follow it: keys present in
// the original keep their original position and new keys come last.
func Marshal(c *model.Cluster, original *yaml.Node) ([]byte, error) {
	n, err := Encode(c)
	if err != nil {
		return nil, err
	}
	if original != nil {
		alignKeys(n, original)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// Marshal re-encodes c following the key order of d.
func (d *Document) Marshal(c *model.Cluster) ([]byte, error) {
	var n *yaml.Node
	if d != nil {
		n = d.Node
	}
	return Marshal(c, n)
}

// Encode builds the canonical YAML tree for c.
func Encode(c *model.Cluster) (*yaml.Node, error) {
	m := newMapping()
	m.put(KeyArchitecture, c.Architecture())
	m.put(KeyClusterName, c.Name())
	if c.Platform() != "" {
		m.put(KeyPlatform, c.Platform())
	}
	for _, k := range sortedKeys(c.Settings()) {
		m.put(k, c.Settings()[k])
	}
	if len(c.Vars()) > 0 {
		m.put(KeyClusterVars, c.Vars())
	}

	locs := &yaml.Node{Kind: yaml.SequenceNode}
	for _, l := range c.Locations() {
		e := newMapping()
		e.put(KeyName, l.Name())
		for _, k := range sortedKeys(l.Settings) {
			e.put(k, l.Settings[k])
		}
		if len(l.Group().Vars) > 0 {
			e.put(KeyVars, l.Group().Vars)
		}
		if e.err != nil {
			return nil, e.err
		}
		locs.Content = append(locs.Content, e.node)
	}
	m.putNode(KeyLocations, locs)

	defaults := c.InstanceDefaults()
	if len(defaults.Settings) > 0 || len(defaults.Vars) > 0 {
		d := newMapping()
		for _, k := range sortedKeys(defaults.Settings) {
			d.put(k, defaults.Settings[k])
		}
		if len(defaults.Vars) > 0 {
			d.put(KeyVars, defaults.Vars)
		}
		if d.err != nil {
			return nil, d.err
		}
		m.putNode(KeyInstanceDefaults, d.node)
	}

	insts := &yaml.Node{Kind: yaml.SequenceNode}
	for _, i := range c.Instances().All() {
		e := newMapping()
		e.put(KeyName, i.Name())
		e.put(KeyNode, i.NodeID())
		e.put(KeyLocation, i.Location().Name())
		if roles := i.Roles(); len(roles) > 0 {
			e.put(KeyRole, roles)
		}
		for _, k := range sortedKeys(i.Settings) {
			e.put(k, i.Settings[k])
		}
		if len(i.Vars) > 0 {
			e.put(KeyVars, i.Vars)
		}
		if e.err != nil {
			return nil, e.err
		}
		insts.Content = append(insts.Content, e.node)
	}
	m.putNode(KeyInstances, insts)

	if m.err != nil {
		return nil, m.err
	}
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{m.node}}, nil
}

// mapping builds a YAML mapping node in insertion order.
type mapping struct {
	node *yaml.Node
	err  error
}

func newMapping() *mapping { return &mapping{node: &yaml.Node{Kind: yaml.MappingNode}} }

func (m *mapping) put(key string, value any) {
	if m.err != nil {
		return
	}
	v := &yaml.Node{}
	if err := v.Encode(value); err != nil {
		m.err = fmt.Errorf("failed to encode %q: %w", key, err)
		return
	}
	m.putNode(key, v)
}

func (m *mapping) putNode(key string, v *yaml.Node) {
	k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	m.node.Content = append(m.node.Content, k, v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// alignKeys reorders the mapping keys of n to follow ref, recursively.
// Comments attached to keys in ref are carried over.
func alignKeys(n, ref *yaml.Node) {
	if n == nil || ref == nil {
		return
	}
	if n.Kind == yaml.DocumentNode && ref.Kind == yaml.DocumentNode {
		if len(n.Content) > 0 && len(ref.Content) > 0 {
			n.HeadComment = ref.HeadComment
			alignKeys(n.Content[0], ref.Content[0])
		}
		return
	}
	switch {
	case n.Kind == yaml.MappingNode && ref.Kind == yaml.MappingNode:
		alignMapping(n, ref)
	case n.Kind == yaml.SequenceNode && ref.Kind == yaml.SequenceNode:
		for idx, child := range n.Content {
			alignKeys(child, matchElement(child, idx, ref))
		}
	}
}

func alignMapping(n, ref *yaml.Node) {
	n.HeadComment = ref.HeadComment
	n.FootComment = ref.FootComment
	type pair struct{ k, v *yaml.Node }
	refPos := map[string]int{}
	refVal := map[string]*yaml.Node{}
	refKey := map[string]*yaml.Node{}
	for i := 0; i+1 < len(ref.Content); i += 2 {
		key := ref.Content[i].Value
		refPos[key] = i / 2
		refKey[key] = ref.Content[i]
		refVal[key] = ref.Content[i+1]
	}
	pairs := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		pairs = append(pairs, pair{n.Content[i], n.Content[i+1]})
	}
	rank := func(p pair) int {
		if pos, ok := refPos[p.k.Value]; ok {
			return pos
		}
		return len(refPos)
	}
	slices.SortStableFunc(pairs, func(a, b pair) int { return rank(a) - rank(b) })

	n.Content = n.Content[:0]
	for _, p := range pairs {
		if rk, ok := refKey[p.k.Value]; ok {
			p.k.HeadComment = rk.HeadComment
			p.k.LineComment = rk.LineComment
			alignKeys(p.v, refVal[p.k.Value])
		}
		n.Content = append(n.Content, p.k, p.v)
	}
}

// matchElement finds the element of ref that corresponds to n: the entry
// with the same Name for location and instance lists, else the one at the
// same index.
func matchElement(n *yaml.Node, idx int, ref *yaml.Node) *yaml.Node {
	if name := scalarValue(n, KeyName); name != "" {
		for _, r := range ref.Content {
			if scalarValue(r, KeyName) == name {
				return r
			}
		}
		return nil
	}
	if idx < len(ref.Content) {
		return ref.Content[idx]
	}
	return nil
}

func scalarValue(n *yaml.Node, key string) string {
	if n == nil || n.Kind != yaml.MappingNode {
		return ""
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key && n.Content[i+1].Kind == yaml.ScalarNode {
			return n.Content[i+1].Value
		}
	}
	return ""
}
