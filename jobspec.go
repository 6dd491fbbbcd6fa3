package monument

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Fallen-Breath/monument/utils"
)

// JobSpec describes one remap job: one provider/version's obfuscated
// jar plus the mapping tree(s) to apply, mirroring function.go's
// Function struct (root path, name, runtime-ish identity fields)
// generalized from "a deployable function's identity" to "a single
// remap job's identity".
type JobSpec struct {
	// Provider namespaces the job on disk (jars/<provider>/..., matches
	// the filesystem layout of §6).
	Provider string
	// Version identifies the game version being remapped.
	Version string

	// InputJar is the obfuscated jar to read.
	InputJar string
	// OutputJar is where the remapped jar is written.
	OutputJar string

	// Intermediate and Named are applied in sequence via
	// remap.ApplyCombined when both are set (two-stage: obfuscated ->
	// intermediate -> human-named). When Named is set and Intermediate
	// is nil, a single PassFinal pass is run directly against Named.
	IntermediateMappingPath string
	NamedMappingPath        string

	// Concurrency holds per-category parallelism bounds for this job.
	// validate checks them; Pipeline.Run does not apply them, so every
	// job uses PipelineEnv's category ticket counts.
	Concurrency ConcurrencyOptions
}

// ConcurrencyOptions bounds per-category parallelism for a single job,
// generalized from function_options.go's ScaleOptions (min/max
// validated knobs applied to a deployment's autoscaler) to validated
// knobs applied to this job's task categories.
type ConcurrencyOptions struct {
	Download *int
	Remap    *int
}

// Validate checks that ConcurrencyOptions are sane, mirroring
// function_options.go's validateOptions shape: collect every violation
// rather than failing on the first.
func (o ConcurrencyOptions) Validate() (errs []string) {
	if o.Download != nil && *o.Download < 1 {
		errs = append(errs, fmt.Sprintf("concurrency.download must be >= 1, got %d", *o.Download))
	}
	if o.Remap != nil && *o.Remap < 1 {
		errs = append(errs, fmt.Sprintf("concurrency.remap must be >= 1, got %d", *o.Remap))
	}
	return errs
}

// validate reports whether the spec has enough information to run.
func (s JobSpec) validate() error {
	const op = "monument.JobSpec.validate"
	if s.Version == "" {
		return NewError(KindBadFormat, op, fmt.Errorf("version is required"))
	}
	if err := utils.ValidateVersionName(s.Version); err != nil {
		return NewError(KindBadFormat, op, err)
	}
	if s.Provider != "" {
		if err := utils.ValidateProviderName(s.Provider); err != nil {
			return NewError(KindBadFormat, op, err)
		}
	}
	if s.InputJar == "" {
		return NewError(KindBadFormat, op, fmt.Errorf("input jar path is required"))
	}
	if s.OutputJar == "" {
		return NewError(KindBadFormat, op, fmt.Errorf("output jar path is required"))
	}
	if s.NamedMappingPath == "" && s.IntermediateMappingPath == "" {
		return NewError(KindBadFormat, op, fmt.Errorf("at least one mapping path is required"))
	}
	if errs := s.Concurrency.Validate(); len(errs) > 0 {
		return NewError(KindBadFormat, op, errors.Errorf("invalid concurrency options: %v", errs))
	}
	return nil
}
