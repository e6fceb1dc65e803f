package auth

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Permission names checked by the admin API
const (
	PermBatchView    = "batch:view"
	PermBatchPublish = "batch:publish"
	PermBatchFlush   = "batch:flush"
	PermBatchReset   = "batch:reset"
	PermFlushesView  = "flushes:view"
)

// Permissions maps role -> []permission
type Permissions map[string][]string

type permissionsFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadPermissions loads a permissions.yml file and returns a role->permissions map.
func LoadPermissions(path string) (Permissions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read permissions file: %w", err)
	}
	var pf permissionsFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse permissions file: %w", err)
	}
	return Permissions(pf.Roles), nil
}
