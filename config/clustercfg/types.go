// Package clustercfg reads and writes config.yml, the persisted document
// describing one cluster. Loading decodes the document into a model.Cluster;
// writing re-encodes the cluster while keeping the key order of the document
// it was loaded from.
package clustercfg

import "gopkg.in/yaml.v3"

// FileName is the name of the configuration document inside a cluster
// directory.
const FileName = "config.yml"

// Top-level keys of config.yml.
const (
	KeyArchitecture     = "architecture"
	KeyClusterName      = "cluster_name"
	KeyPlatform         = "platform"
	KeyClusterVars      = "cluster_vars"
	KeyLocations        = "locations"
	KeyInstanceDefaults = "instance_defaults"
	KeyInstances        = "instances"
)

// Keys of location and instance entries.
const (
	KeyName     = "Name"
	KeyNode     = "node"
	KeyLocation = "location"
	KeyRole     = "role"
	KeyVars     = "vars"
	KeySubnet   = "subnet"
)

// root is the YAML shape of config.yml. Keys not listed here are kept in
// Settings and become cluster settings.
type root struct {
	Architecture     string           `yaml:"architecture"`
	ClusterName      string           `yaml:"cluster_name"`
	Platform         string           `yaml:"platform"`
	ClusterVars      map[string]any   `yaml:"cluster_vars"`
	Locations        []map[string]any `yaml:"locations"`
	InstanceDefaults map[string]any   `yaml:"instance_defaults"`
	Instances        []map[string]any `yaml:"instances"`
	Settings         map[string]any   `yaml:",inline"`
}

// Document is a loaded config.yml.
type Document struct {
	// Path is the file the document was read from, if any.
	Path string
	// Node is the parsed YAML tree of the original text. It is used to
	// restore key order when the cluster is written back.
	Node *yaml.Node
	// Raw is the original text.
	Raw []byte
}
