// Package config loads cbtctl settings from flags, environment and an
// optional config file, and vSphere connection details from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/joshuapare/cbtkit/cbt/replicate"
	"github.com/joshuapare/cbtkit/cbt/tracker"
	"github.com/joshuapare/cbtkit/internal/state"
	"github.com/joshuapare/cbtkit/pkg/types"
)

// EnvPrefix prefixes every settings environment variable, e.g.
// CBTKIT_COALESCE_GAP.
const EnvPrefix = "CBTKIT"

// Setting keys. Flags with the same name (underscores as dashes) are bound
// onto these keys.
const (
	KeyCoalesceGap     = "coalesce_gap"
	KeyChunkSize       = "chunk_size"
	KeyStateBackend    = "state_backend"
	KeyStatePath       = "state_path"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyLogFile         = "log_file"
	KeyMetricsTextfile = "metrics_textfile"
	KeyLock            = "lock"
)

// Settings are the tunables shared by cbtctl subcommands.
type Settings struct {
	CoalesceGap     uint64 `mapstructure:"coalesce_gap"`
	ChunkSize       uint64 `mapstructure:"chunk_size"`
	StateBackend    string `mapstructure:"state_backend"`
	StatePath       string `mapstructure:"state_path"`
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`
	LogFile         string `mapstructure:"log_file"`
	MetricsTextfile string `mapstructure:"metrics_textfile"`
	Lock            bool   `mapstructure:"lock"`
}

// SetDefaults installs default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyCoalesceGap, tracker.DefaultGap)
	v.SetDefault(KeyChunkSize, replicate.DefaultChunkSize)
	v.SetDefault(KeyStateBackend, state.BackendFile)
	v.SetDefault(KeyStatePath, "cbtkit-state.json")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyMetricsTextfile, "")
	v.SetDefault(KeyLock, false)
}

// New returns a viper instance with defaults and CBTKIT_* environment
// binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// flagKeys maps flag names that differ from their setting key.
var flagKeys = map[string]string{
	"chunk": KeyChunkSize,
}

// BindFlags binds every flag in fs whose dashed name matches a setting key,
// or that flagKeys names.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			key = strings.ReplaceAll(f.Name, "-", "_")
		}
		if !isKey(key) {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, fmt.Errorf("bind --%s: %w", f.Name, err))
		}
	})
	if err := errors.Join(errs...); err != nil {
		return types.Wrap(types.ErrKindConfig, err, "bind flags")
	}
	return nil
}

// Load reads configFile (if non-empty) into v and decodes the settings.
// Precedence is flag, environment, config file, default.
func Load(v *viper.Viper, configFile string) (Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, types.Wrap(types.ErrKindConfig, err, fmt.Sprintf("read config file %s", configFile))
		}
	}
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, types.Wrap(types.ErrKindConfig, err, "decode settings")
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks settings invariants.
func (s Settings) Validate() error {
	if s.ChunkSize == 0 {
		return types.Errorf(types.ErrKindConfig, "chunk size must be positive")
	}
	switch strings.ToLower(s.StateBackend) {
	case state.BackendFile, state.BackendLevelDB:
	default:
		return types.Errorf(types.ErrKindConfig, "unknown state backend %q", s.StateBackend)
	}
	return nil
}

func isKey(key string) bool {
	switch key {
	case KeyCoalesceGap, KeyChunkSize, KeyStateBackend, KeyStatePath, KeyLogLevel,
		KeyLogFormat, KeyLogFile, KeyMetricsTextfile, KeyLock:
		return true
	}
	return false
}
