package result

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EnvTimestamp names the environment variable that pins the run timestamp,
// in RFC 3339 form, for reproducible output.
const EnvTimestamp = "DIAGBENCH_TIMESTAMP_UTC"

// Run block keys.
const (
	RunTimestamp      = "timestamp_utc"
	RunToolVersion    = "diagbench_version"
	RunGitSHA         = "git_sha"
	RunGoVersion      = "go_version"
	RunPlatform       = "platform"
	RunID             = "run_id"
	RunDatasetRef     = "dataset_ref"
	RunPredictor      = "predictor"
	RunManifestSHA256 = "dataset_manifest_sha256"
	RunCLI            = "cli"
	RunAlpha          = "alpha"
)

const (
	timestampLayout    = "2006-01-02T15:04:05Z"
	shortSHALen        = 7
	gitLookupTimeout   = 2 * time.Second
	unknownToolVersion = "(devel)"
)

// runNamespace scopes run IDs derived with UUIDv5.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/jamesainslie/go-diagbench/run"))

// Provenance describes where and when a result was produced. Extra holds
// caller-supplied run entries; they take precedence over inferred ones.
type Provenance struct {
	Timestamp   time.Time
	ToolVersion string
	GitSHA      string
	GoVersion   string
	Platform    string
	Extra       map[string]string
}

// DetectProvenance infers tool version, VCS revision and platform from the
// running binary and stamps the time from now.
func DetectProvenance(now func() time.Time) Provenance {
	if now == nil {
		now = time.Now
	}
	p := Provenance{
		Timestamp:   now(),
		ToolVersion: unknownToolVersion,
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" {
			p.ToolVersion = v
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				p.GitSHA = shortSHA(s.Value)
			}
		}
	}
	if p.GitSHA == "" {
		p.GitSHA = gitShortSHA()
	}
	return p
}

// gitShortSHA asks git for the current revision. Any failure yields "".
func gitShortSHA() string {
	ctx, cancel := context.WithTimeout(context.Background(), gitLookupTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func shortSHA(rev string) string {
	if len(rev) > shortSHALen {
		return rev[:shortSHALen]
	}
	return rev
}

// FormatTimestamp renders t in UTC with second precision and a Z suffix.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(timestampLayout)
}

// ClockFromEnv returns a clock pinned to EnvTimestamp when it is set, and
// time.Now otherwise.
func ClockFromEnv(getenv func(string) string) (func() time.Time, error) {
	val := strings.TrimSpace(getenv(EnvTimestamp))
	if val == "" {
		return time.Now, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", EnvTimestamp, err)
	}
	return func() time.Time { return t }, nil
}

// RunBlock renders the run mapping of a record, without a run ID.
func (p Provenance) RunBlock() map[string]string {
	run := map[string]string{
		RunTimestamp:   FormatTimestamp(p.Timestamp),
		RunToolVersion: p.ToolVersion,
		RunGitSHA:      p.GitSHA,
		RunGoVersion:   p.GoVersion,
		RunPlatform:    p.Platform,
	}
	for k, v := range p.Extra {
		run[k] = v
	}
	return run
}

// RunIDFor derives a stable run ID from the record's content, ignoring any
// run ID already present. Records that differ in any field get different IDs.
func RunIDFor(r *BenchmarkResult) string {
	run := make(map[string]string, len(r.Run))
	for k, v := range r.Run {
		if k != RunID {
			run[k] = v
		}
	}
	c := *r
	c.Run = run
	// Maps encode with sorted keys, so the encoding is canonical.
	data, err := json.Marshal(&c)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", c))
	}
	return uuid.NewSHA1(runNamespace, data).String()
}
