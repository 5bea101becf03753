package attributes

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides: ACNG_APT_CACHER_NG_CACHE_PORT
const EnvPrefix = "ACNG"

// Node is the layered attribute set of the host being converged.
//
// Precedence, lowest first: Default, Normal (attribute files), environment,
// Override. Keys are dotted paths and case-insensitive.
type Node struct {
	v *viper.Viper
}

// New creates a node carrying the cookbook defaults
func New() *Node {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	n := &Node{v: v}
	n.applyCookbookDefaults()
	return n
}

// Default sets a default-precedence value
func (n *Node) Default(key string, value interface{}) {
	n.v.SetDefault(key, value)
}

// Normal merges a value at attribute-file precedence
func (n *Node) Normal(key string, value interface{}) error {
	if err := n.v.MergeConfigMap(nest(key, value)); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Override sets a value that beats every other layer
func (n *Node) Override(key string, value interface{}) {
	n.v.Set(key, value)
}

// LoadFile merges a YAML or JSON attribute file at normal precedence
func (n *Node) LoadFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to read attribute file: %w", err)
	}
	n.v.SetConfigFile(path)
	if err := n.v.MergeInConfig(); err != nil {
		return fmt.Errorf("failed to parse attribute file %s: %w", path, err)
	}
	return nil
}

// ApplyOverrides parses key=value pairs (as given to --set) into overrides
func (n *Node) ApplyOverrides(pairs []string) error {
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return &FieldError{Key: pair, Reason: "override must be key=value"}
		}
		n.Override(key, value)
	}
	return nil
}

// Get returns the effective raw value of key
func (n *Node) Get(key string) interface{} {
	return n.v.Get(key)
}

// IsSet reports whether key has a value. nil and blank strings count as unset.
func (n *Node) IsSet(key string) bool {
	value := n.v.Get(key)
	if value == nil {
		return false
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

// String returns key as a string ("" when unset)
func (n *Node) String(key string) string {
	if !n.IsSet(key) {
		return ""
	}
	return strings.TrimSpace(cast.ToString(n.v.Get(key)))
}

// Int returns key as an int
func (n *Node) Int(key string) (int, error) {
	value, err := cast.ToIntE(n.v.Get(key))
	if err != nil {
		return 0, &FieldError{Key: key, Reason: err.Error()}
	}
	return value, nil
}

// StringSlice returns key as a list; scalar strings are split on whitespace
func (n *Node) StringSlice(key string) []string {
	if !n.IsSet(key) {
		return nil
	}
	return cast.ToStringSlice(n.v.Get(key))
}

// Settings returns the merged attribute tree
func (n *Node) Settings() map[string]interface{} {
	return n.v.AllSettings()
}

// nest turns "a.b.c" and v into {"a": {"b": {"c": v}}}
func nest(key string, value interface{}) map[string]interface{} {
	parts := strings.Split(key, ".")
	out := map[string]interface{}{parts[len(parts)-1]: value}
	for i := len(parts) - 2; i >= 0; i-- {
		out = map[string]interface{}{parts[i]: out}
	}
	return out
}
