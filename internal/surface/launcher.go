package surface

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/cctv/errors"
	"github.com/grovetools/cctv/logging"
)

// LaunchConfig describes how to start the browser.
type LaunchConfig struct {
	Binary         string
	Args           []string
	DebugPort      int
	StartupTimeout time.Duration
	// UserDataDir is the browser profile. Empty means a fresh temporary
	// profile, removed on Release.
	UserDataDir string
}

// Launcher starts a browser and acquires its page as a Surface.
type Launcher struct {
	cfg    LaunchConfig
	log    *logrus.Entry
	client *http.Client
}

// NewLauncher returns a Launcher for cfg.
func NewLauncher(cfg LaunchConfig) *Launcher {
	if cfg.DebugPort == 0 {
		cfg.DebugPort = 9222
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = 10 * time.Second
	}
	return &Launcher{
		cfg:    cfg,
		log:    logging.NewLogger("surface"),
		client: &http.Client{Timeout: 2 * time.Second},
	}
}

// Acquire launches the browser, opens url in its page and maximizes it.
func (l *Launcher) Acquire(ctx context.Context, url string) (*Surface, error) {
	bin, err := exec.LookPath(l.cfg.Binary)
	if err != nil {
		return nil, errors.SurfaceLaunchFailed(l.cfg.Binary, err)
	}

	profile := l.cfg.UserDataDir
	cleanup := func() {}
	if profile == "" {
		profile, err = os.MkdirTemp("", "cctv-profile-")
		if err != nil {
			return nil, errors.SurfaceLaunchFailed(bin, err)
		}
		dir := profile
		cleanup = func() { os.RemoveAll(dir) }
	}

	cmd := exec.Command(bin, l.flags(profile)...)
	if err := cmd.Start(); err != nil {
		cleanup()
		return nil, errors.SurfaceLaunchFailed(bin, err)
	}
	exited := make(chan struct{})
	go func() {
		cmd.Wait()
		close(exited)
	}()

	log := l.log.WithField("pid", cmd.Process.Pid)
	log.WithField("binary", bin).Debug("Browser started")

	fail := func(err error) (*Surface, error) {
		cmd.Process.Kill()
		cleanup()
		return nil, err
	}

	wsURL, err := l.waitEndpoint(ctx, exited)
	if err != nil {
		return fail(err)
	}

	conn, err := Dial(ctx, wsURL)
	if err != nil {
		return fail(classify("connect", err))
	}

	s, err := open(ctx, conn, cmd.Process.Pid, url, log)
	if err != nil {
		conn.Close()
		return fail(err)
	}
	s.release = cleanup
	return s, nil
}

func (l *Launcher) flags(profile string) []string {
	flags := []string{
		"--remote-debugging-port=" + strconv.Itoa(l.cfg.DebugPort),
		"--user-data-dir=" + profile,
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-session-crashed-bubble",
		"--start-maximized",
		"--app=about:blank",
	}
	return append(flags, l.cfg.Args...)
}

func (l *Launcher) endpoint() string {
	return "http://127.0.0.1:" + strconv.Itoa(l.cfg.DebugPort)
}

// waitEndpoint polls /json/version until the browser publishes its debugger
// URL, the startup timeout passes, or the process exits.
func (l *Launcher) waitEndpoint(ctx context.Context, exited <-chan struct{}) (string, error) {
	deadline := time.NewTimer(l.cfg.StartupTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		if wsURL, err := fetchDebuggerURL(ctx, l.client, l.endpoint()); err == nil {
			return wsURL, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-exited:
			return "", errors.SurfaceLaunchFailed(l.cfg.Binary, fmt.Errorf("browser exited before the DevTools endpoint came up"))
		case <-deadline.C:
			return "", errors.SurfaceLaunchFailed(l.cfg.Binary,
				fmt.Errorf("DevTools endpoint not reachable after %s", l.cfg.StartupTimeout))
		case <-tick.C:
		}
	}
}

func fetchDebuggerURL(ctx context.Context, client *http.Client, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(endpoint, "/")+"/json/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	var v struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return "", err
	}
	if v.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("no webSocketDebuggerUrl")
	}
	return v.WebSocketDebuggerURL, nil
}

// Attach acquires the page of a browser that is already running with its
// DevTools endpoint at endpoint (for example http://127.0.0.1:9222).
func Attach(ctx context.Context, endpoint string, pid int, url string) (*Surface, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	wsURL, err := fetchDebuggerURL(ctx, client, endpoint)
	if err != nil {
		return nil, classify("endpoint", err)
	}
	conn, err := Dial(ctx, wsURL)
	if err != nil {
		return nil, classify("connect", err)
	}
	s, err := open(ctx, conn, pid, url, logging.NewLogger("surface").WithField("pid", pid))
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}
