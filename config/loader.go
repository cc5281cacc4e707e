package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem is the file access the loader needs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem reads the real file system.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) LoadEnv(path string) error { return godotenv.Load(path) }

// Resolver finds the config.yml and .env files of a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles are the files a load will read. Empty means none found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// searchRoots are tried in order so the daemon finds its files whether it
// runs from the repository root, cmd/ or cmd/<service>/.
var searchRoots = []string{".", "..", filepath.Join("..", "..")}

// searchDirs lists the directories, relative to a root, that may hold the
// files of service.
func searchDirs(service string) []string {
	dirs := []string{filepath.Join("cmd", service)}
	if i := strings.LastIndex(service, "-"); i != -1 {
		dirs = append(dirs, filepath.Join("cmd", service[i+1:]))
	}
	dirs = append(dirs, filepath.Join("config", service), "config", ".")

	out := make([]string, 0, len(searchRoots)*len(dirs))
	for _, root := range searchRoots {
		for _, dir := range dirs {
			out = append(out, filepath.Join(root, dir))
		}
	}
	return out
}

// ResolveFiles returns the explicit paths in opts, searching for whichever
// was left empty.
func (r *Resolver) ResolveFiles(service string, opts LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: opts.ConfigFile, EnvFile: opts.EnvFile}
	if files.ConfigFile == "" {
		files.ConfigFile = r.find(service, "config.yml")
	}
	if files.EnvFile == "" {
		files.EnvFile = r.find(service, ".env."+service, ".env")
	}
	return files
}

// find returns the first existing file, trying every name in a directory
// before moving to the next one.
func (r *Resolver) find(service string, names ...string) string {
	for _, dir := range searchDirs(service) {
		for _, name := range names {
			if p := filepath.Join(dir, name); r.FileSystem.Exists(p) {
				return p
			}
		}
	}
	return ""
}

// LoaderConfig holds the file system and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// LoaderOption configures LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem replaces the OS file system, mostly in tests.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile skips the search and reads path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile skips the search and loads path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// LoadConfig reads service's config.yml, then its .env file, then the
// process environment, and decodes the result into cfg. Missing files are
// not an error.
func LoadConfig(service string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: OSFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}
	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(service, lc)

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			// The logger is configured from this file, so it is not up yet.
			fmt.Fprintf(os.Stderr, "[config] warning: read %s: %v\n", files.ConfigFile, err)
		}
	}
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			fmt.Fprintf(os.Stderr, "[config] warning: load %s: %v\n", files.EnvFile, err)
		}
	}
	bindEnv(v, envPrefix(service))

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode config for %s: %w", service, err)
	}
	return nil
}

type defaulter interface{ ApplyDefaults() }

type validator interface{ Validate() error }

// Load reads a T for service, then applies defaults and validates it when
// T supports those steps.
func Load[T any](service string, opts ...LoaderOption) (*T, error) {
	cfg := new(T)
	if err := LoadConfig(service, cfg, opts...); err != nil {
		return nil, err
	}
	if d, ok := any(cfg).(defaulter); ok {
		d.ApplyDefaults()
	}
	if v, ok := any(cfg).(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config for %s: %w", service, err)
		}
	}
	return cfg, nil
}

// envPrefix is the variable prefix that scopes a setting to one service,
// e.g. CONNECTORD_ for connectord.
func envPrefix(service string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(service)) + "_"
}

// bindEnv copies environment variables into v. Each variable lands on the
// config key it most plausibly names: an existing key, else the key whose
// parent section is deepest in the file, else its flat lowercase form.
// Variables carrying prefix are applied last so they win over unprefixed
// ones.
func bindEnv(v *viper.Viper, prefix string) {
	known := knownPaths(v.AllKeys())
	var scoped [][2]string
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if rest, found := strings.CutPrefix(key, prefix); found && rest != "" {
			scoped = append(scoped, [2]string{rest, value})
			continue
		}
		v.Set(envKey(key, known), value)
	}
	for _, kv := range scoped {
		v.Set(envKey(kv[0], known), kv[1])
	}
}

// knownPaths returns every key and every parent section of keys.
func knownPaths(keys []string) map[string]bool {
	paths := make(map[string]bool, len(keys))
	for _, k := range keys {
		for {
			paths[k] = true
			i := strings.LastIndex(k, ".")
			if i == -1 {
				break
			}
			k = k[:i]
		}
	}
	return paths
}

// envKey maps an environment variable to a config key using known.
func envKey(env string, known map[string]bool) string {
	best, bestScore := strings.ToLower(env), 0
	for _, c := range envKeys(env) {
		if score := keyScore(c, known); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// keyScore ranks an exact key above any partial match, and a partial match
// by the depth of its deepest known parent section.
func keyScore(key string, known map[string]bool) int {
	if known[key] {
		return math.MaxInt
	}
	for p := key; ; {
		i := strings.LastIndex(p, ".")
		if i == -1 {
			return 0
		}
		p = p[:i]
		if known[p] {
			return strings.Count(p, ".") + 1
		}
	}
}

// maxNesting bounds how many underscore-separated words get every dot
// placement. Longer names only map to their flat and fully nested forms.
const maxNesting = 6

// envKeys lists the config keys an environment variable can stand for:
// CONNECTORS_SOCIAL_KIND may mean connectors.social.kind,
// connectors.social_kind, connectors_social.kind or connectors_social_kind.
func envKeys(env string) []string {
	parts := strings.Split(strings.ToLower(env), "_")
	if len(parts) > maxNesting {
		return []string{strings.Join(parts, "_"), strings.Join(parts, ".")}
	}
	return nestings(parts)
}

func nestings(parts []string) []string {
	if len(parts) == 1 {
		return parts
	}
	rest := nestings(parts[1:])
	out := make([]string, 0, 2*len(rest))
	for _, r := range rest {
		out = append(out, parts[0]+"."+r, parts[0]+"_"+r)
	}
	return out
}
