package monument

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// ConfigFileName is an optional file checked for in a pipeline's
// working root, the generalization of config.go's ".faas.yaml" to this
// domain's "defaults for PipelineEnv" file.
const ConfigFileName = ".monument.yaml"

// fileConfig mirrors config.go's Config: a yaml-tagged subset of
// PipelineEnv's fields that may be overridden from disk, applied
// before the WithX options so that options still take precedence —
// same layering rule config.go documents for Client.
type fileConfig struct {
	CacheDir    string `yaml:"cacheDir"`
	Parallelism int    `yaml:"parallelism"`
}

// LoadEnvOptions reads root/.monument.yaml if present and returns the
// Option values it implies, for the caller to prepend to its own
// explicit options list (explicit WithX options given afterward still
// win, exactly as config.go's applyConfig precedence note describes).
// A missing file is not an error — it simply yields no options.
func LoadEnvOptions(root string) ([]Option, error) {
	const op = "monument.LoadEnvOptions"
	path := filepath.Join(root, ConfigFileName)
	bb, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, NewError(KindIO, op, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(bb, &cfg); err != nil {
		return nil, NewError(KindBadFormat, op, err)
	}

	var opts []Option
	if cfg.CacheDir != "" {
		opts = append(opts, WithCacheDir(cfg.CacheDir))
	}
	if cfg.Parallelism > 0 {
		opts = append(opts, WithParallelism(cfg.Parallelism))
	}
	return opts, nil
}
