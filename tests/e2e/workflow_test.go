package e2e

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

const (
	TEST_DELIVERY_TIMEOUT = 90 * time.Second
)

var habitIDPattern = regexp.MustCompile(`Added habit: .+ \(([^)]+)\)`)

func TestEndToEndWorkflow(t *testing.T) {
	// 1. Setup Environment
	// Allow overriding bin dir via env var, default to ../../bin (relative to tests/e2e)
	binDir := os.Getenv("STREAKD_BIN_DIR")
	if binDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			t.Fatalf("Failed to get cwd: %v", err)
		}
		binDir = filepath.Join(cwd, "..", "..", "bin")
	}
	binDir, _ = filepath.Abs(binDir)
	cliPath := filepath.Join(binDir, "streakd")
	if _, err := os.Stat(cliPath); os.IsNotExist(err) {
		t.Skipf("CLI binary not found at %s; build it with 'go build -o bin/streakd ./cmd/streakd'", cliPath)
	}
	t.Logf("Using CLI: %s", cliPath)

	// Isolate config, database and logs in a temp home
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	config := fmt.Sprintf("database: %s\nlog:\n  dir: %s\ndispatch:\n  rate: 0\n",
		filepath.Join(tempDir, "streakd.db"), filepath.Join(tempDir, "logs"))
	if err := os.WriteFile(configPath, []byte(config), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	var env []string
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, "HOME=") && !strings.HasPrefix(e, "STREAKD_") {
			env = append(env, e)
		}
	}
	env = append(env, "HOME="+tempDir)

	streakd := func(args ...string) string {
		t.Helper()
		return runCmd(t, cliPath, env, append([]string{"--config", configPath}, args...)...)
	}

	// 2. Initialize and seed a user with a habit
	t.Log("Initializing storage...")
	streakd("init")
	streakd("user", "add", "Ada", "--id", "ada", "--timezone", "UTC")

	out := streakd("habit", "add", "Read", "--user", "ada")
	m := habitIDPattern.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("Could not find habit ID in output: %s", out)
	}
	out = streakd("habit", "log", m[1])
	if !strings.Contains(out, "XP") {
		t.Errorf("habit log should report XP, got: %s", out)
	}

	// 3. Schedule a reminder for the current minute
	now := time.Now().UTC()
	streakd("reminder", "add", "morning", "--user", "ada", "--time", now.Format("15:04"))

	out = streakd("tick", "--dry-run", "--at", now.Format(time.RFC3339))
	if !strings.Contains(out, "morning") {
		t.Fatalf("dry-run tick should list the morning reminder, got: %s", out)
	}

	// 4. Start the daemon and wait for delivery
	t.Log("Starting daemon...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	daemon := exec.CommandContext(ctx, cliPath, "--config", configPath, "run", "--log-only")
	daemon.Env = env
	stderrPipe, err := daemon.StderrPipe()
	if err != nil {
		t.Fatalf("Failed to get stderr pipe: %v", err)
	}
	if err := daemon.Start(); err != nil {
		t.Fatalf("Failed to start daemon: %v", err)
	}
	defer func() {
		cancel()
		if err := daemon.Wait(); err != nil {
			t.Logf("Daemon exited with error: %v", err)
		}
	}()

	doneCh := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(stderrPipe)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.Contains(line, "Reminder delivered") {
				t.Logf("Found delivery log: %s", line)
				close(doneCh)
				return
			}
		}
	}()

	select {
	case <-doneCh:
		t.Log("Verified reminder delivery!")
	case <-time.After(TEST_DELIVERY_TIMEOUT):
		t.Fatal("Timed out waiting for reminder delivery")
	}

	// 5. A second pass finds the reminder already claimed
	out = streakd("tick")
	if !strings.Contains(out, "delivered=0") {
		t.Errorf("reminder delivered twice: %s", out)
	}
}

func runCmd(t *testing.T, path string, env []string, args ...string) string {
	t.Helper()
	cmd := exec.Command(path, args...)
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Command %s %v failed: %v\nOutput: %s", path, args, err, out)
	}
	return string(out)
}
