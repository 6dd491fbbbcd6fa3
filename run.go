package monument

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Fallen-Breath/monument/progress"
)

// RunDataDir is the per-run data directory name under a job's working
// root, the same role job.go's RunDataDir plays for a running
// Function's instance metadata.
const RunDataDir = ".monument"

// job tracks one in-flight Pipeline.Run invocation: a progress bar and
// an on-disk marker recording that a (provider, version) pair is
// currently being worked on, generalized from job.go's Job (which
// tracked a running Function's listening port under
// <root>/.func/instances/<port>) to tracking a running remap job under
// <root>/.monument/jobs/<provider>-<version>.
type job struct {
	env     *PipelineEnv
	spec    JobSpec
	bar     *progress.Bar
	marker  string
}

func newJob(env *PipelineEnv, spec JobSpec) *job {
	j := &job{
		env:  env,
		spec: spec,
		bar:  progress.New(env.Log.Verbose(), progress.WithPrintStepCounter(true)),
	}
	j.marker = markerPath(spec)
	j.save()
	return j
}

// save writes an empty marker file at <root>/.monument/jobs/<provider>-<version>,
// where <root> is the directory two levels above spec.OutputJar,
// mirroring job.go's save: "everything is a file".
func (j *job) save() {
	if j.marker == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(j.marker), 0o755); err != nil {
		return
	}
	f, err := os.Create(j.marker)
	if err != nil {
		return
	}
	f.Close()
}

// stop removes the marker file, the Job.Stop analogue.
func (j *job) stop() {
	if j.marker != "" {
		_ = os.Remove(j.marker)
	}
}

func markerPath(spec JobSpec) string {
	if spec.OutputJar == "" {
		return ""
	}
	root := filepath.Dir(filepath.Dir(spec.OutputJar))
	return filepath.Join(root, RunDataDir, "jobs", fmt.Sprintf("%s-%s", spec.Provider, spec.Version))
}
