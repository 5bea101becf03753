package attributes

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Cookbook is the typed view of the apt-cacher-ng attribute namespace
type Cookbook struct {
	Cache   CacheAttributes   `mapstructure:"cache" yaml:"cache"`
	Device  DeviceAttributes  `mapstructure:"device" yaml:"device"`
	Restore RestoreAttributes `mapstructure:"restore" yaml:"restore"`
	Backup  BackupAttributes  `mapstructure:"backup" yaml:"backup"`
}

// CacheAttributes configure the caching proxy itself
type CacheAttributes struct {
	Port   int    `mapstructure:"port" yaml:"port"`
	Server string `mapstructure:"server" yaml:"server"`
	Dir    string `mapstructure:"dir" yaml:"dir"`
}

// DeviceAttributes configure the data volume
type DeviceAttributes struct {
	Nickname      string `mapstructure:"nickname" yaml:"nickname"`
	VolumeSize    int    `mapstructure:"volume_size" yaml:"volume_size"`
	IOPS          *int   `mapstructure:"iops" yaml:"iops"`
	Filesystem    string `mapstructure:"filesystem" yaml:"filesystem"`
	MountPoint    string `mapstructure:"mount_point" yaml:"mount_point"`
	DetachTimeout int    `mapstructure:"detach_timeout" yaml:"detach_timeout"`
}

// RestoreAttributes select a backup to restore the data volume from
type RestoreAttributes struct {
	Lineage   string `mapstructure:"lineage" yaml:"lineage"`
	Timestamp *int64 `mapstructure:"timestamp" yaml:"timestamp"`
}

// BackupAttributes configure backups of the data volume
type BackupAttributes struct {
	Lineage string     `mapstructure:"lineage" yaml:"lineage"`
	Keep    KeepPolicy `mapstructure:"keep" yaml:"keep"`
}

// KeepPolicy bounds how many backups cleanup retains
type KeepPolicy struct {
	KeepLast int `mapstructure:"keep_last" yaml:"keep_last"`
}

// Cookbook decodes the apt-cacher-ng namespace. Environment overrides are
// folded in because viper only consults them for explicit keys.
func (n *Node) Cookbook() (*Cookbook, error) {
	sub := viper.New()
	for _, key := range cookbookKeys() {
		if value := n.v.Get(key); value != nil {
			sub.Set(key, value)
		}
	}

	var cb Cookbook
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		trimSpaceHook(),
		blankToNilHook(),
	)
	if err := sub.UnmarshalKey(ServiceName, &cb, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("failed to decode %s attributes: %w", ServiceName, err)
	}
	return &cb, nil
}

func cookbookKeys() []string {
	keys := make([]string, 0, len(cookbookDefaults)+1)
	for key := range cookbookDefaults {
		keys = append(keys, key)
	}
	return append(keys, KeyDeviceDetachTimeout)
}

// trimSpaceHook strips surrounding blanks from string values, so a lineage of
// "  " decodes as unset, the same way IsSet sees it.
func trimSpaceHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.String {
			return data, nil
		}
		return strings.TrimSpace(data.(string)), nil
	}
}

// blankToNilHook keeps optional pointer fields nil for blank strings so that
// "iops: ''" means unset rather than zero.
func blankToNilHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to.Kind() != reflect.Ptr || from.Kind() != reflect.String {
			return data, nil
		}
		if strings.TrimSpace(data.(string)) == "" {
			return nil, nil
		}
		return data, nil
	}
}

// Validate checks the values recipes rely on
func (c *Cookbook) Validate() error {
	if c.Cache.Port <= 0 || c.Cache.Port > 65535 {
		return &FieldError{Key: KeyCachePort, Reason: "must be within 1-65535"}
	}
	if !filepath.IsAbs(c.Cache.Dir) {
		return &FieldError{Key: KeyCacheDir, Reason: "must be an absolute path"}
	}
	if strings.TrimSpace(c.Device.Nickname) == "" {
		return &FieldError{Key: KeyDeviceNickname, Reason: "must not be empty"}
	}
	if c.Device.VolumeSize <= 0 {
		return &FieldError{Key: KeyDeviceVolumeSize, Reason: "must be greater than 0"}
	}
	if c.Device.IOPS != nil && *c.Device.IOPS <= 0 {
		return &FieldError{Key: KeyDeviceIOPS, Reason: "must be greater than 0 when set"}
	}
	if strings.TrimSpace(c.Device.Filesystem) == "" {
		return &FieldError{Key: KeyDeviceFilesystem, Reason: "must not be empty"}
	}
	if !filepath.IsAbs(c.Device.MountPoint) {
		return &FieldError{Key: KeyDeviceMountPoint, Reason: "must be an absolute path"}
	}
	if c.Device.DetachTimeout <= 0 {
		return &FieldError{Key: KeyDeviceDetachTimeout, Reason: "must be greater than 0"}
	}
	if c.Backup.Keep.KeepLast < 1 {
		return &FieldError{Key: KeyBackupKeepLast, Reason: "must be at least 1"}
	}
	return nil
}
