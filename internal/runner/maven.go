// Package runner invokes Maven to execute a selected set of test classes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"watchtest/internal/config"
	"watchtest/internal/selector"
)

// MavenRunner runs tests through the project's Maven build, preferring the
// Maven wrapper when one is present.
type MavenRunner struct {
	projectDir string
	cfg        *config.Config
}

// NewMavenRunner creates a runner rooted at the project base directory.
func NewMavenRunner(projectDir string, cfg *config.Config) *MavenRunner {
	return &MavenRunner{projectDir: projectDir, cfg: cfg}
}

// Execute runs the given test classes. The bool result reflects the test
// outcome; an error means the run could not be executed at all. An empty
// class list is a successful no-op.
func (r *MavenRunner) Execute(ctx context.Context, testClasses []string) (bool, error) {
	if len(testClasses) == 0 {
		slog.Info("No tests to execute")
		return true, nil
	}

	if timeout := r.cfg.TestTimeoutMinutes; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Minute)
		defer cancel()
	}

	args := r.BuildArgs(testClasses)
	if r.cfg.Verbose {
		slog.Info("Maven command", "command", r.MavenCommand(), "args", strings.Join(args, " "))
	}
	slog.Info("Executing tests", "classes", len(testClasses))

	cmd := exec.CommandContext(ctx, r.MavenCommand(), args...)
	cmd.Dir = r.projectDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return true, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		slog.Error("==========================================")
		slog.Error("Test run timed out", "timeoutMinutes", r.cfg.TestTimeoutMinutes)
		slog.Error("==========================================")
		return false, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		slog.Error("==========================================")
		slog.Error("Tests failed", "exit_code", exitErr.ExitCode())
		slog.Error("==========================================")
		return false, nil
	}

	return false, fmt.Errorf("failed to execute tests: %w", err)
}

// MavenCommand picks the Maven executable: the wrapper when present and
// executable, plain mvn otherwise.
func (r *MavenRunner) MavenCommand() string {
	mvnw := filepath.Join(r.projectDir, "mvnw")
	if info, err := os.Stat(mvnw); err == nil && info.Mode()&0o111 != 0 {
		return "./mvnw"
	}
	mvnwCmd := filepath.Join(r.projectDir, "mvnw.cmd")
	if _, err := os.Stat(mvnwCmd); err == nil {
		return "mvnw.cmd"
	}
	return "mvn"
}

// BuildArgs assembles the Maven argument list for one test run.
func (r *MavenRunner) BuildArgs(testClasses []string) []string {
	cfg := r.cfg
	args := []string{
		"--batch-mode",
		"test",
		"-Dtest=" + selector.ToTestParameter(testClasses),
	}

	if groups := strings.TrimSpace(cfg.EffectiveGroups()); groups != "" {
		args = append(args, "-Dgroups="+groups)
	}
	if excluded := strings.TrimSpace(cfg.EffectiveExcludedGroups()); excluded != "" {
		args = append(args, "-DexcludedGroups="+excluded)
	}

	if cfg.RerunFailingTestsCount > 0 {
		args = append(args, fmt.Sprintf("-Dsurefire.rerunFailingTestsCount=%d", cfg.RerunFailingTestsCount))
	}

	if cfg.RunOrder != "" {
		runOrder := strings.ToLower(cfg.RunOrder)
		if runOrder == "balanced" || runOrder == "failedfirst" {
			slog.Debug("runOrder generates statistics files; filesystem, alphabetical, random or reverse avoid them",
				"runOrder", cfg.RunOrder)
		}
		args = append(args,
			"-Dsurefire.runOrder="+cfg.RunOrder,
			// Keep run history inside target/ so no .surefire-* files land in
			// the project root.
			"-Dsurefire.runHistoryDirectory="+filepath.Join(r.projectDir, "target", ".surefire-history"),
			"-Dsurefire.runOrder.memorystatus=false",
		)
	}

	if cfg.Parallel {
		args = append(args,
			"-Dparallel=methods",
			fmt.Sprintf("-DthreadCount=%d", cfg.ThreadCount),
		)
	}

	if cfg.SkipAfterFailureCount > 0 {
		args = append(args, fmt.Sprintf("-Dsurefire.skipAfterFailureCount=%d", cfg.SkipAfterFailureCount))
	}

	args = append(args,
		fmt.Sprintf("-Dsurefire.useFile=%t", cfg.UseFile),
		"-Dsurefire.tempDir=none",
		"-Dsurefire.trimStackTrace=false",
		"-Dsurefire.redirectTestOutputToFile=false",
		"-Dsurefire.useSystemClassLoader=false",
	)

	if tempDir := strings.TrimSpace(cfg.TempDir); tempDir != "" {
		abs := tempDir
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(r.projectDir, tempDir)
		}
		args = append(args, "-Djava.io.tmpdir="+abs)
	}

	if len(cfg.AdditionalProperties) > 0 {
		keys := make([]string, 0, len(cfg.AdditionalProperties))
		for k := range cfg.AdditionalProperties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			args = append(args, fmt.Sprintf("-D%s=%s", k, cfg.AdditionalProperties[k]))
		}
	}

	return args
}
