//go:build stave

package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
	"github.com/yaklabco/stave/pkg/target"
)

// Default target when running `stave` with no arguments.
var Default = All

// Aliases for common targets.
var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"l": Lint,
	"c": Clean,
}

// All runs the complete build pipeline: lint, test, and build.
func All() error {
	st.Deps(Init)
	st.Deps(Lint, Test)
	st.Deps(Build)
	return nil
}

// Init ensures the module dependencies are up to date.
func Init() error {
	return sh.Run("go", "mod", "tidy")
}

// Build compiles the diagbench binary with version information.
func Build() error {
	st.Deps(Init)

	rebuild, err := target.Glob("bin/diagbench", "**/*.go", "result/schema/*.json", "go.mod", "go.sum")
	if err != nil {
		return fmt.Errorf("checking rebuild: %w", err)
	}
	if !rebuild {
		if st.Verbose() {
			fmt.Println("diagbench is up to date")
		}
		return nil
	}

	ldflags := buildLdflags()
	return sh.RunV("go", "build", "-ldflags", ldflags, "-o", "bin/diagbench", "./cmd/diagbench")
}

// buildLdflags returns ldflags for version injection.
func buildLdflags() string {
	version, _ := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	commit, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	date := time.Now().Format(time.RFC3339)

	return fmt.Sprintf(
		"-X main.version=%s -X main.commit=%s -X main.date=%s",
		strings.TrimSpace(version),
		strings.TrimSpace(commit),
		date,
	)
}

// Test runs all tests with race detection and coverage.
func Test() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-race", "-cover", "./...")
}

// TestShort runs tests in short mode (skips long-running tests).
func TestShort() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-short", "-race", "./...")
}

// TestVerbose runs tests with verbose output.
func TestVerbose() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-race", "-cover", "-v", "./...")
}

// Lint runs golangci-lint on the codebase.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// LintFix runs golangci-lint with auto-fix enabled.
func LintFix() error {
	return sh.RunV("golangci-lint", "run", "--fix", "./...")
}

// Fmt formats all Go code using gofmt and goimports.
func Fmt() error {
	if err := sh.Run("gofmt", "-w", "."); err != nil {
		return fmt.Errorf("gofmt: %w", err)
	}
	if err := sh.Run("goimports", "-w", "."); err != nil {
		return fmt.Errorf("goimports: %w", err)
	}
	return nil
}

// Vet runs go vet on all packages.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	artifacts := []string{
		"bin/",
		"diagbench",
		"coverage.out",
		"coverage.html",
		synthDir,
	}
	for _, a := range artifacts {
		if err := sh.Rm(a); err != nil {
			return fmt.Errorf("removing %s: %w", a, err)
		}
	}
	return nil
}

// Install builds and installs the binary to GOBIN.
func Install() error {
	st.Deps(Build)

	gocmd := st.GoCmd()
	bin, err := sh.Output(gocmd, "env", "GOBIN")
	if err != nil {
		return fmt.Errorf("determining GOBIN: %w", err)
	}
	if bin == "" {
		gopath, err := sh.Output(gocmd, "env", "GOPATH")
		if err != nil {
			return fmt.Errorf("determining GOPATH: %w", err)
		}
		bin = gopath + "/bin"
	}

	dst := bin + "/diagbench"
	if runtime.GOOS == "windows" {
		dst += ".exe"
	}
	if err := sh.Copy(dst, "bin/diagbench"); err != nil {
		return fmt.Errorf("installing diagbench: %w", err)
	}
	if st.Verbose() {
		fmt.Printf("Installed diagbench to %s\n", dst)
	}
	return nil
}

// synthDir holds the generated benchmark dataset.
const synthDir = "testdata/synth"

// Bench namespace for benchmark-related targets.
type Bench st.Namespace

// Synth generates the synthetic dataset used by the other Bench targets.
func (Bench) Synth() error {
	st.Deps(Build)

	rebuild, err := target.Glob(synthDir+"/dataset.json", "bin/diagbench")
	if err != nil {
		return fmt.Errorf("checking dataset: %w", err)
	}
	if !rebuild {
		return nil
	}
	n := os.Getenv("DIAGBENCH_SYNTH_N")
	if n == "" {
		n = "30"
	}
	return sh.RunV("./bin/diagbench", "synth", synthDir, "--n", n)
}

// Run scores a predictor against the synthetic dataset.
// DIAGBENCH_PREDICTOR selects it (default: heuristic).
func (Bench) Run() error {
	st.Deps(Bench.Synth)

	predictor := os.Getenv("DIAGBENCH_PREDICTOR")
	if predictor == "" {
		predictor = "heuristic"
	}
	return sh.RunV("./bin/diagbench", "run", synthDir,
		"--predictor", predictor,
		"--out", "bin/result-"+predictor+".json",
	)
}

// Sweep runs an alpha sweep to find the best matching tolerance.
func (Bench) Sweep() error {
	st.Deps(Bench.Synth)

	predictor := os.Getenv("DIAGBENCH_PREDICTOR")
	if predictor == "" {
		predictor = "heuristic"
	}
	return sh.RunV("./bin/diagbench", "sweep", synthDir, "--predictor", predictor)
}

// Verify checks every result record under bin/ against the result schema.
func (Bench) Verify() error {
	return sh.RunV("go", "run", "./scripts/verify-results.go", "bin")
}

// CI runs the full CI pipeline (lint, test, build).
func CI() error {
	st.Deps(Init)
	st.SerialDeps(Lint, Test, Build)
	return nil
}

// Check runs quick validation (vet, lint, short tests).
func Check() error {
	st.Deps(Vet, Lint, TestShort)
	return nil
}

// Coverage generates a coverage report.
func Coverage() error {
	st.Deps(Init)
	if err := sh.RunV("go", "test", "-race", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-html=coverage.out", "-o", "coverage.html")
}

// Tidy runs go mod tidy and verifies the go.sum is clean.
func Tidy() error {
	if err := sh.Run("go", "mod", "tidy"); err != nil {
		return err
	}
	// Verify no changes to go.sum (useful for CI)
	output, err := sh.Output("git", "diff", "--exit-code", "go.sum")
	if err != nil {
		if output != "" {
			return fmt.Errorf("go.sum is not clean:\n%s", output)
		}
	}
	return nil
}
