// Copyright IBM Corp. 2014, 2025
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const (
	// PrivateKeyFilename is the name of the PKCS#8 private key file.
	PrivateKeyFilename = "updater_private.pem"

	// PublicKeyFilename is the name of the SubjectPublicKeyInfo public key file.
	PublicKeyFilename = "updater_public.pem"

	// DefaultOutputDir is where the key files are written.
	DefaultOutputDir = "."

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "WARN"

	// DefaultPrivateKeyPerms keep the private key readable by its owner only.
	DefaultPrivateKeyPerms os.FileMode = 0o600

	// DefaultPublicKeyPerms are the permissions of the public key file.
	DefaultPublicKeyPerms os.FileMode = 0o644

	// EnvLogLevel is the environment variable read for the log level.
	EnvLogLevel = "UPDATER_KEYGEN_LOG"
)

// LogLevels are the accepted values for log_level.
var LogLevels = []string{"TRACE", "DEBUG", "INFO", "WARN", "ERR"}

// Config is used to configure the key generator
type Config struct {
	// OutputDir is the directory the two key files are written to.
	OutputDir *string `mapstructure:"output_dir"`

	// CreateDestDirs creates OutputDir if it does not exist.
	CreateDestDirs *bool `mapstructure:"create_dest_dirs"`

	// Backup keeps a ".bak" copy of key files that get overwritten.
	Backup *bool `mapstructure:"backup"`

	// PrivateKeyPerms and PublicKeyPerms are the modes of the written files.
	PrivateKeyPerms *os.FileMode `mapstructure:"private_key_perms"`
	PublicKeyPerms  *os.FileMode `mapstructure:"public_key_perms"`

	// LogLevel is the level with which to log for this config.
	LogLevel *string `mapstructure:"log_level"`

	// Syslog is the configuration for syslog.
	Syslog *SyslogConfig `mapstructure:"syslog"`
}

// Copy returns a deep copy of the current configuration. This is useful because
// the nested data structures may be shared.
func (c *Config) Copy() *Config {
	if c == nil {
		return nil
	}

	var o Config

	o.OutputDir = StringCopy(c.OutputDir)
	o.CreateDestDirs = BoolCopy(c.CreateDestDirs)
	o.Backup = BoolCopy(c.Backup)
	o.PrivateKeyPerms = FileModeCopy(c.PrivateKeyPerms)
	o.PublicKeyPerms = FileModeCopy(c.PublicKeyPerms)
	o.LogLevel = StringCopy(c.LogLevel)

	if c.Syslog != nil {
		o.Syslog = c.Syslog.Copy()
	}

	return &o
}

// Merge merges the values in config into this config object. Values in the
// config object overwrite the values in c.
func (c *Config) Merge(o *Config) *Config {
	if c == nil {
		if o == nil {
			return nil
		}
		return o.Copy()
	}

	if o == nil {
		return c.Copy()
	}

	r := c.Copy()

	if o.OutputDir != nil {
		r.OutputDir = o.OutputDir
	}

	if o.CreateDestDirs != nil {
		r.CreateDestDirs = o.CreateDestDirs
	}

	if o.Backup != nil {
		r.Backup = o.Backup
	}

	if o.PrivateKeyPerms != nil {
		r.PrivateKeyPerms = o.PrivateKeyPerms
	}

	if o.PublicKeyPerms != nil {
		r.PublicKeyPerms = o.PublicKeyPerms
	}

	if o.LogLevel != nil {
		r.LogLevel = o.LogLevel
	}

	if o.Syslog != nil {
		r.Syslog = r.Syslog.Merge(o.Syslog)
	}

	return r
}

// Parse parses the given string contents as a config
func Parse(s string) (*Config, error) {
	var shadow interface{}
	if err := hcl.Decode(&shadow, s); err != nil {
		return nil, errors.Wrap(err, "error decoding config")
	}

	// Convert to a map and flatten the keys we want to flatten
	parsed, ok := shadow.(map[string]interface{})
	if !ok {
		return nil, errors.New("error converting config")
	}

	flattenKeys(parsed, []string{
		"syslog",
	})

	// Create a new, empty config
	var c Config

	// Use mapstructure to populate the basic config fields
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			StringToFileModeFunc(),
		),
		ErrorUnused: true,
		Metadata:    &md,
		Result:      &c,
	})
	if err != nil {
		return nil, errors.Wrap(err, "mapstructure decoder creation failed")
	}
	if err := decoder.Decode(parsed); err != nil {
		return nil, errors.Wrap(err, "mapstructure decode failed")
	}

	return &c, nil
}

// Must returns a config object that must compile. If there are any errors, this
// function will panic. This is most useful in testing or constants.
func Must(s string) *Config {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FromFile reads the configuration file at the given path and returns a new
// Config struct with the data populated.
func FromFile(path string) (*Config, error) {
	c, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "from file: "+path)
	}

	config, err := Parse(string(c))
	if err != nil {
		return nil, errors.Wrap(err, "from file: "+path)
	}
	return config, nil
}

// FromPath iterates and merges all configuration files in a given
// directory, returning the resulting config.
func FromPath(path string) (*Config, error) {
	// Ensure the given filepath exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Wrap(err, "missing file/folder: "+path)
	}

	// Check if a file was given or a path to a directory
	stat, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed stating file: "+path)
	}

	// Recursively parse directories, single load files
	if stat.Mode().IsDir() {
		// Ensure the given filepath has at least one config file
		_, err := os.ReadDir(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed listing dir: "+path)
		}

		// Create a blank config to merge off of
		var c *Config

		// Potential bug: Walk does not follow symlinks!
		err = filepath.Walk(path, func(path string, info os.FileInfo, err error) error {
			// If WalkFunc had an error, just return it
			if err != nil {
				return err
			}

			// Do nothing for directories
			if info.IsDir() {
				return nil
			}

			// Parse and merge the config
			newConfig, err := FromFile(path)
			if err != nil {
				return err
			}
			c = c.Merge(newConfig)

			return nil
		})

		if err != nil {
			return nil, errors.Wrap(err, "walk error")
		}

		return c, nil
	} else if stat.Mode().IsRegular() {
		return FromFile(path)
	}

	return nil, fmt.Errorf("unknown filetype: %q", stat.Mode().String())
}

// GoString defines the printable version of this struct.
func (c *Config) GoString() string {
	if c == nil {
		return "(*Config)(nil)"
	}

	return fmt.Sprintf("&Config{"+
		"OutputDir:%s, "+
		"CreateDestDirs:%s, "+
		"Backup:%s, "+
		"PrivateKeyPerms:%s, "+
		"PublicKeyPerms:%s, "+
		"LogLevel:%s, "+
		"Syslog:%#v"+
		"}",
		StringGoString(c.OutputDir),
		BoolGoString(c.CreateDestDirs),
		BoolGoString(c.Backup),
		FileModeGoString(c.PrivateKeyPerms),
		FileModeGoString(c.PublicKeyPerms),
		StringGoString(c.LogLevel),
		c.Syslog,
	)
}

// DefaultConfig returns the default configuration struct. Certain
// environment variables may be set which control the values for the default
// configuration.
func DefaultConfig() *Config {
	return &Config{
		Syslog: DefaultSyslogConfig(),
	}
}

// Finalize ensures all configuration options have the default values, so it
// is safe to dereference the pointers later down the line. It also
// intelligently tries to activate stanzas that should be "enabled" because
// data was given, but the user did not explicitly add "Enabled: true" to the
// configuration.
func (c *Config) Finalize() {
	if c == nil {
		return
	}

	if c.OutputDir == nil {
		c.OutputDir = String(DefaultOutputDir)
	}
	if expanded, err := homedir.Expand(*c.OutputDir); err == nil {
		c.OutputDir = String(expanded)
	}

	if c.CreateDestDirs == nil {
		c.CreateDestDirs = Bool(false)
	}

	if c.Backup == nil {
		c.Backup = Bool(false)
	}

	if c.PrivateKeyPerms == nil {
		c.PrivateKeyPerms = FileMode(DefaultPrivateKeyPerms)
	}

	if c.PublicKeyPerms == nil {
		c.PublicKeyPerms = FileMode(DefaultPublicKeyPerms)
	}

	if c.LogLevel == nil {
		c.LogLevel = stringFromEnv([]string{
			EnvLogLevel,
		}, DefaultLogLevel)
	}
	c.LogLevel = String(strings.ToUpper(strings.TrimSpace(*c.LogLevel)))

	if c.Syslog == nil {
		c.Syslog = DefaultSyslogConfig()
	}
	c.Syslog.Finalize()
}

// Validate reports every problem with a finalized configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if !StringPresent(c.OutputDir) {
		result = multierror.Append(result, errors.New("output_dir must not be empty"))
	}

	if !FileModePresent(c.PrivateKeyPerms) {
		result = multierror.Append(result, errors.New("private_key_perms must be set"))
	} else if perms := FileModeVal(c.PrivateKeyPerms); perms&0o077 != 0 {
		result = multierror.Append(result, fmt.Errorf(
			"private_key_perms %q must not grant group or other access", perms))
	} else if perms&0o400 == 0 {
		result = multierror.Append(result, fmt.Errorf(
			"private_key_perms %q must be readable by the owner", perms))
	}

	if !FileModePresent(c.PublicKeyPerms) {
		result = multierror.Append(result, errors.New("public_key_perms must be set"))
	} else if perms := FileModeVal(c.PublicKeyPerms); perms&0o400 == 0 {
		result = multierror.Append(result, fmt.Errorf(
			"public_key_perms %q must be readable by the owner", perms))
	}

	level := StringVal(c.LogLevel)
	valid := false
	for _, l := range LogLevels {
		if level == l {
			valid = true
			break
		}
	}
	if !valid {
		result = multierror.Append(result, fmt.Errorf(
			"log_level %q must be one of %s", level, strings.Join(LogLevels, ", ")))
	}

	return result.ErrorOrNil()
}

// PrivateKeyPath is the destination of the private key file.
func (c *Config) PrivateKeyPath() string {
	return filepath.Join(StringVal(c.OutputDir), PrivateKeyFilename)
}

// PublicKeyPath is the destination of the public key file.
func (c *Config) PublicKeyPath() string {
	return filepath.Join(StringVal(c.OutputDir), PublicKeyFilename)
}

func stringFromEnv(list []string, def string) *string {
	for _, s := range list {
		if v := os.Getenv(s); v != "" {
			return String(strings.TrimSpace(v))
		}
	}
	return String(def)
}

// flattenKeys is a function that takes a map[string]interface{} and recursively
// flattens any keys that are a []map[string]interface{} where the key is in the
// given list of keys.
func flattenKeys(m map[string]interface{}, keys []string) {
	keyMap := make(map[string]struct{})
	for _, key := range keys {
		keyMap[key] = struct{}{}
	}

	var flatten func(map[string]interface{}, string)
	flatten = func(m map[string]interface{}, parent string) {
		for k, v := range m {
			// Calculate the map key, since it could include a parent.
			mapKey := k
			if parent != "" {
				mapKey = parent + "." + k
			}

			if _, ok := keyMap[mapKey]; !ok {
				continue
			}

			switch typed := v.(type) {
			case []map[string]interface{}:
				if len(typed) > 0 {
					last := typed[len(typed)-1]
					flatten(last, mapKey)
					m[k] = last
				} else {
					m[k] = nil
				}
			case map[string]interface{}:
				flatten(typed, mapKey)
				m[k] = typed
			default:
				m[k] = v
			}
		}
	}

	flatten(m, "")
}
