package inspect

import (
	"context"
	"os"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// envVar names the environment variable selecting the active profile.
const envVar = "PIPELENS_ENV"

// configFile is the per-project configuration file the gate reads when
// present in the working directory.
const configFile = "pipelens.yaml"

// Gate is the process-wide environment gate: it lists the build/runtime
// profiles in which instrumentation is active. Outside those profiles
// inspect() is stripped at transform time and evaluates to its argument
// with zero overhead and no output.
type Gate struct {
	profiles map[string]bool
}

// NewGate creates a gate enabling the given profiles. With no arguments
// the default profiles ("dev" and "test") are enabled.
func NewGate(profiles ...string) *Gate {
	if len(profiles) == 0 {
		profiles = []string{"dev", "test"}
	}
	enabled := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		enabled[p] = true
	}
	return &Gate{profiles: enabled}
}

// Enabled reports whether instrumentation is active in the given profile.
func (g *Gate) Enabled(profile string) bool {
	return g.profiles[profile]
}

// Profiles returns the enabled profile names.
func (g *Gate) Profiles() []string {
	names := make([]string, 0, len(g.profiles))
	for p := range g.profiles {
		names = append(names, p)
	}
	return names
}

// CurrentProfile returns the active profile: the PIPELENS_ENV environment
// variable when set, "dev" otherwise.
func CurrentProfile() string {
	if env := os.Getenv(envVar); env != "" {
		return env
	}
	return "dev"
}

// gateConfig mirrors the pipelens.yaml layout.
type gateConfig struct {
	// Profiles lists the profiles with instrumentation active.
	Profiles []string `yaml:"profiles"`
	// Env overrides the active profile (PIPELENS_ENV wins over it).
	Env string `yaml:"env"`
}

// LoadGate builds a gate from a pipelens.yaml configuration file. A
// missing file is not an error: the defaults apply. A malformed file is
// a configuration error.
func LoadGate(ctx context.Context, path string) (*Gate, string, error) {
	if path == "" {
		path = configFile
	}

	fs := afs.New()
	ok, _ := fs.Exists(ctx, path)
	if !ok {
		return NewGate(), CurrentProfile(), nil
	}

	data, err := fs.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, "", err
	}

	var cfg gateConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, "", err
	}

	profile := CurrentProfile()
	if os.Getenv(envVar) == "" && cfg.Env != "" {
		profile = cfg.Env
	}
	return NewGate(cfg.Profiles...), profile, nil
}
