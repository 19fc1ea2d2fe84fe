package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hooksd/hooksd/internal/config"
	"github.com/hooksd/hooksd/internal/daemon"
	"github.com/hooksd/hooksd/internal/logging"
	"github.com/hooksd/hooksd/internal/paths"
	"github.com/hooksd/hooksd/internal/protocol"
)

var startForeground bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the project daemon",
	Long: `Start the hooks daemon for the current project. By default the daemon
detaches and runs in the background; --foreground keeps it attached,
logging to stderr in addition to the log file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		return runStart(cmd, root, startForeground)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the project daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		return runStop(cmd, root)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		return runStatus(cmd, root)
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the project daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		if err := runStop(cmd, root); err != nil {
			var ee *ExitError
			// "not running" is fine for restart.
			if !errors.As(err, &ee) || ee.Code != 1 {
				return err
			}
		}
		return runStart(cmd, root, false)
	},
}

func init() {
	startCmd.Flags().BoolVar(&startForeground, "foreground", false, "run attached to the terminal")
	rootCmd.AddCommand(startCmd, stopCmd, statusCmd, restartCmd)
}

func runStart(cmd *cobra.Command, root string, foreground bool) error {
	if _, err := daemon.RunningPID(root); err == nil {
		return exitErr(1, errors.New("daemon is already running"))
	}

	cfg, err := config.Load(root)
	if err != nil {
		return exitErr(2, err)
	}

	if !foreground {
		// Surface registry problems before detaching so the user sees
		// exit code 2 instead of a child that dies silently.
		if _, err := buildRegistry(cfg); err != nil {
			return exitErr(2, err)
		}
		return spawnDetached(cmd, root)
	}

	logPath, err := paths.LogPath(root)
	if err != nil {
		return exitErr(2, err)
	}
	if _, err := paths.EnsureRuntimeDir(root); err != nil {
		return exitErr(2, err)
	}
	closer, err := logging.SetupTee(logPath, cfg.Daemon.LogLevel)
	if err != nil {
		return exitErr(2, err)
	}
	defer closer.Close()

	// Wire after the log sink is installed; the dispatcher holds on to
	// the logger it sees at construction.
	deps, err := wireDependencies(root, cfg)
	if err != nil {
		return exitErr(2, err)
	}

	srv := daemon.New(deps.Config, deps.Dispatcher, deps.Validator, root)
	if err := srv.Run(context.Background()); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return exitErr(1, err)
		}
		return exitErr(2, err)
	}
	return nil
}

// spawnDetached re-executes this binary with --foreground in a new
// session, then waits for the daemon to come up.
func spawnDetached(cmd *cobra.Command, root string) error {
	exe, err := os.Executable()
	if err != nil {
		return exitErr(2, fmt.Errorf("locate executable: %w", err))
	}
	child := exec.Command(exe, "start", "--foreground")
	child.Dir = root
	child.Stdin = nil
	child.Stdout = nil
	child.Stderr = nil
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := child.Start(); err != nil {
		return exitErr(2, fmt.Errorf("spawn daemon: %w", err))
	}
	if err := child.Process.Release(); err != nil {
		return exitErr(2, err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if pid, err := daemon.RunningPID(root); err == nil {
			fmt.Fprintln(cmd.OutOrStdout(), successLine(fmt.Sprintf("daemon started (pid %d)", pid)))
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return exitErr(2, errors.New("daemon did not come up within 10s"))
}

func runStop(cmd *cobra.Command, root string) error {
	pid, err := daemon.RunningPID(root)
	if err != nil {
		return exitErr(1, errors.New("daemon is not running"))
	}
	if err := daemon.SignalStop(root); err != nil {
		return exitErr(1, err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !daemon.ProcessAlive(pid) {
			fmt.Fprintln(cmd.OutOrStdout(), successLine(fmt.Sprintf("daemon stopped (pid %d)", pid)))
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return exitErr(1, fmt.Errorf("daemon (pid %d) did not stop within 5s", pid))
}

func runStatus(cmd *cobra.Command, root string) error {
	pid, err := daemon.RunningPID(root)
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), errorLine("daemon is not running"))
		return exitErr(1, nil)
	}

	logPath, _ := paths.LogPath(root)
	pairs := [][2]string{
		{"State", "running"},
		{"PID", fmt.Sprintf("%d", pid)},
		{"Socket", daemon.ResolveSocketPath(root)},
		{"Log", logPath},
		{"Config", config.Path(root)},
	}
	pairs = append(pairs, pingPairs(root)...)
	if stdoutIsTTY() {
		fmt.Fprintln(cmd.OutOrStdout(), card("hooksd status", kvLines(pairs)))
	} else {
		for _, p := range pairs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p[0], p[1])
		}
	}
	return nil
}

// pingPairs probes the daemon over its socket and turns the pong's
// "key: value" context lines into display pairs. A daemon that does not
// answer yields no pairs; the pid file already told us it exists.
func pingPairs(root string) [][2]string {
	conn, err := net.DialTimeout("unix", daemon.ResolveSocketPath(root), 2*time.Second)
	if err != nil {
		return nil
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	req := &protocol.Request{Event: protocol.EventPing, RequestID: uuid.NewString()}
	if err := protocol.WriteRequest(conn, req); err != nil {
		return nil
	}
	resp, err := protocol.ReadResponse(conn)
	if err != nil || resp.Result == nil {
		return nil
	}

	var pairs [][2]string
	for _, line := range resp.Result.Context {
		key, value, ok := strings.Cut(line, ": ")
		if !ok || key == "pid" {
			continue
		}
		pairs = append(pairs, [2]string{displayKey(key), value})
	}
	return pairs
}

// displayKey maps a pong key to its status label.
func displayKey(key string) string {
	switch key {
	case "last_activity":
		return "Last activity"
	case "model":
		return "Model"
	case "context_used_pct":
		return "Context used %"
	case "session_updated":
		return "Session updated"
	}
	return key
}
