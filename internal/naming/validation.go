package naming

import (
	"fmt"
	"strings"

	utilvalidation "k8s.io/apimachinery/pkg/util/validation"
)

const (
	clusterNameMaxLength  = 48
	locationNameMaxLength = 63
	hostnameMaxLength     = 63
)

func validateDNS1123Label(name string, maximum int, labelKind string) error {
	if name == "" {
		return fmt.Errorf("%s name must not be empty", labelKind)
	}
	if len(name) > maximum {
		return fmt.Errorf("%s name exceeds %d characters", labelKind, maximum)
	}
	if errs := utilvalidation.IsDNS1123Label(name); len(errs) > 0 {
		return fmt.Errorf("invalid %s name: %s", labelKind, strings.Join(errs, ", "))
	}
	return nil
}

// ValidateHostname checks that an instance name can be used as a hostname.
func ValidateHostname(name string) error {
	return validateDNS1123Label(name, hostnameMaxLength, "instance")
}

// ValidateClusterName checks a cluster name. Cluster names become directory
// names and, once sanitized, replication group names, so anything beyond
// letters, digits, '-' and '_' is rejected.
func ValidateClusterName(name string) error {
	if name == "" {
		return fmt.Errorf("cluster name must not be empty")
	}
	if len(name) > clusterNameMaxLength {
		return fmt.Errorf("cluster name exceeds %d characters", clusterNameMaxLength)
	}
	for _, r := range name {
		ok := r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return fmt.Errorf("invalid cluster name %q: unexpected character %q", name, r)
		}
	}
	return nil
}

// ValidateLocationName checks a location name.
func ValidateLocationName(name string) error {
	if name == "" {
		return fmt.Errorf("location name must not be empty")
	}
	if len(name) > locationNameMaxLength {
		return fmt.Errorf("location name exceeds %d characters", locationNameMaxLength)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("invalid location name %q: leading or trailing whitespace", name)
	}
	return nil
}
