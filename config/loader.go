package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/svckit/errors"
	"github.com/kbukum/svckit/logger"
)

// FileSystem abstracts the file operations of the loader (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv loads a .env file without overriding variables already set.
func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds the config and env files of a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved file paths. Overlay is the
// environment-specific file merged over ConfigFile, when present.
type ResolvedFiles struct {
	ConfigFile string
	Overlay    string
	EnvFile    string
}

var configNames = []string{"config.yml", "config.yaml"}

// ResolveFiles returns the explicit paths of opts, searching the service
// directories for whichever is empty.
func (cr *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	dirs := searchDirs(serviceName)
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.first(dirs, configNames)
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.first(dirs, []string{".env." + serviceName, ".env"})
	}
	return resolved
}

// OverlayFor returns the existing environment file next to configFile,
// config.production.yml for config.yml in production, or "".
func (cr *Resolver) OverlayFor(configFile, environment string) string {
	if configFile == "" || environment == "" {
		return ""
	}
	ext := filepath.Ext(configFile)
	overlay := strings.TrimSuffix(configFile, ext) + "." + environment + ext
	if cr.FileSystem.Exists(overlay) {
		return overlay
	}
	return ""
}

// first returns the first existing file, trying every name in a directory
// before moving to the next one.
func (cr *Resolver) first(dirs, names []string) string {
	for _, name := range names {
		for _, dir := range dirs {
			path := name
			if dir != "" {
				path = dir + "/" + name
			}
			if cr.FileSystem.Exists(path) {
				return path
			}
		}
	}
	return ""
}

// searchDirs lists the directories a service keeps its files in, most
// specific first: cmd/<service>, cmd/<short name>, config/<service>, config
// and the working directory, each also looked up from one and two levels
// below the module root.
func searchDirs(serviceName string) []string {
	names := []string{serviceName}
	if idx := strings.LastIndex(serviceName, "-"); idx != -1 {
		names = append(names, serviceName[idx+1:])
	}

	var bases []string
	for _, name := range names {
		bases = append(bases, "cmd/"+name)
	}
	bases = append(bases, "config/"+serviceName, "config")

	var dirs []string
	for _, base := range bases {
		dirs = append(dirs, "./"+base, "../"+base, "../../"+base)
	}
	return append(dirs, ".", "..", "")
}

// LoaderConfig holds dependencies and optional overrides.
type LoaderConfig struct {
	FileSystem  FileSystem
	ConfigFile  string // Direct config file path (optional)
	EnvFile     string // Direct env file path (optional)
	EnvPrefix   string // Service env prefix, derived from the service name when empty
	Environment string // Overlay environment, read from the configuration when empty
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix sets the prefix of service-scoped environment variables.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// WithEnvironment selects the overlay file regardless of the configured
// environment.
func WithEnvironment(environment string) LoaderOption {
	return func(lc *LoaderConfig) { lc.Environment = environment }
}

// EnvPrefix derives the env prefix of a service: billing-api becomes
// BILLING_API, so BILLING_API_CONTAINER_INIT_TIMEOUT sets
// container.init_timeout for that service only.
func EnvPrefix(serviceName string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(serviceName))
}

// LoadConfig loads the configuration of a service into cfg, a pointer to a
// struct with mapstructure tags. Sources, lowest precedence first:
//
//  1. config.yml found in the service directories
//  2. config.<environment>.yml next to it
//  3. environment variables named after cfg's keys (CONTAINER_INIT_TIMEOUT)
//  4. the same variables with the service prefix (BILLING_CONTAINER_INIT_TIMEOUT)
//
// A .env file is loaded into the process environment first. A config file
// that exists but cannot be parsed fails with INVALID_CONFIG.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{EnvPrefix: EnvPrefix(serviceName)}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)

	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			logger.Warn("Failed to load env file", logger.Fields("file", files.EnvFile, logger.FieldError, err.Error()))
		}
	}

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.InvalidConfig(fmt.Sprintf("cannot read %s", files.ConfigFile)).WithCause(err)
		}

		environment := lc.Environment
		if environment == "" {
			environment = lookupEnv(lc.EnvPrefix, "ENVIRONMENT", v.GetString("environment"))
		}
		files.Overlay = resolver.OverlayFor(files.ConfigFile, environment)
		if files.Overlay != "" {
			v.SetConfigFile(files.Overlay)
			if err := v.MergeInConfig(); err != nil {
				return errors.InvalidConfig(fmt.Sprintf("cannot read %s", files.Overlay)).WithCause(err)
			}
		}
	}

	bound := bindEnv(v, configKeys(reflect.TypeOf(cfg), ""), lc.EnvPrefix)

	if err := v.Unmarshal(cfg); err != nil {
		return errors.InvalidConfig(fmt.Sprintf("cannot decode configuration of %s", serviceName)).WithCause(err)
	}

	logger.Debug("Configuration loaded", logger.Fields(
		"service", serviceName,
		"file", files.ConfigFile,
		"overlay", files.Overlay,
		"env_file", files.EnvFile,
		"env_keys", bound,
	))
	return nil
}

// Defaulter is a configuration that fills its own defaults and checks itself.
type Defaulter interface {
	ApplyDefaults()
	Validate() error
}

// Load is LoadConfig followed by ApplyDefaults and Validate.
func Load(serviceName string, cfg Defaulter, opts ...LoaderOption) error {
	if err := LoadConfig(serviceName, cfg, opts...); err != nil {
		return err
	}
	cfg.ApplyDefaults()
	return cfg.Validate()
}

// EnvName returns the environment variable for a dotted config key:
// container.dispose_timeout is CONTAINER_DISPOSE_TIMEOUT.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// bindEnv sets every key whose variable is present, the prefixed variable
// winning over the plain one, and returns the number of keys set.
func bindEnv(v *viper.Viper, keys []string, prefix string) int {
	bound := 0
	for _, key := range keys {
		if value, ok := lookup(prefix, EnvName(key)); ok {
			v.Set(key, value)
			bound++
		}
	}
	return bound
}

func lookup(prefix, name string) (string, bool) {
	if prefix != "" {
		if value, ok := os.LookupEnv(prefix + "_" + name); ok {
			return value, true
		}
	}
	return os.LookupEnv(name)
}

func lookupEnv(prefix, name, fallback string) string {
	if value, ok := lookup(prefix, name); ok {
		return value
	}
	return fallback
}

var timeType = reflect.TypeFor[time.Time]()

// configKeys lists the dotted keys of t's fields as mapstructure decodes
// them. Structs tagged ",squash" contribute their keys to the parent.
func configKeys(t reflect.Type, prefix string) []string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	var keys []string
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if strings.Contains(opts, "squash") {
			keys = append(keys, configKeys(ft, prefix)...)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if ft.Kind() == reflect.Struct && ft != timeType {
			keys = append(keys, configKeys(ft, key)...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}
