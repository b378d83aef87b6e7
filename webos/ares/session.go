package ares

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/spance/webos-driver-go/webos/definitions"
	"github.com/spance/webos-driver-go/webos/helper"
)

type SessionKind string

const (
	KindForward   SessionKind = "forward"
	KindInspector SessionKind = "inspector"
	KindServer    SessionKind = "server"
)

// Session is one long-running toolchain child process. Its streams are
// drained by background goroutines for the whole process lifetime.
type Session struct {
	ID     string
	Kind   SessionKind
	Device string
	// URL is set for inspector and server sessions once they are ready.
	URL string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	done     chan struct{}
	exitCode int
	stopOnce sync.Once
}

func startSession(kind SessionKind, id, device string, exe definitions.Executable, args []string) (*Session, error) {
	cmd := exec.Command(exe.Path, exe.Argv(args...)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	log.Debug().Str("cmd", strings.Join(cmd.Args, " ")).Str("session", id).Msgf("[%s] spawning process", kind)
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &Session{
		ID:     id,
		Kind:   kind,
		Device: device,
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		done:   make(chan struct{}),
	}, nil
}

// watch pumps both streams into the callbacks and reaps the process once
// both streams are closed.
func (s *Session) watch(onStdout, onStderr func([]byte)) {
	var wg sync.WaitGroup
	wg.Add(2)
	go pump(&wg, s.stdout, onStdout)
	go pump(&wg, s.stderr, onStderr)
	go func() {
		wg.Wait()
		s.exitCode = exitCodeOf(s.cmd.Wait())
		close(s.done)
	}()
}

func pump(wg *sync.WaitGroup, r io.Reader, fn func([]byte)) {
	defer wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			fn(bytes.Clone(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Done is closed once the process has exited and been reaped.
func (s *Session) Done() <-chan struct{} { return s.done }

// ExitCode reports the exit code once the process has exited.
func (s *Session) ExitCode() (int, bool) {
	select {
	case <-s.done:
		return s.exitCode, true
	default:
		return 0, false
	}
}

func (s *Session) Pid() int {
	if s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Stop closes the process streams and kills it after grace unless it has
// exited on its own by then. Safe to call more than once.
func (s *Session) Stop(grace time.Duration) {
	s.stopOnce.Do(func() {
		_ = s.stdin.Close()
		_ = s.stdout.Close()
		_ = s.stderr.Close()
		time.AfterFunc(grace, func() {
			select {
			case <-s.done:
			default:
				_ = s.cmd.Process.Kill()
			}
		})
	})
}

var errTornDown = errors.New("torn down before it was ready")

// SessionManager owns every forward, inspector and local server process.
// Its maps are not touched by any other component and are only read or
// replaced while mu is held.
type SessionManager struct {
	grace time.Duration

	mu         sync.Mutex
	forwards   map[string]*Session
	inspectors map[string]*Session
	// starting holds inspectors spawned but not yet ready.
	starting map[*Session]struct{}
	server   *Session
}

func NewSessionManager(grace time.Duration) *SessionManager {
	return &SessionManager{
		grace:      grace,
		forwards:   make(map[string]*Session),
		inspectors: make(map[string]*Session),
		starting:   make(map[*Session]struct{}),
	}
}

// ForwardKey identifies a forward session as "servicePort:hostPort".
func ForwardKey(servicePort, hostPort int) string {
	return strconv.Itoa(servicePort) + ":" + strconv.Itoa(hostPort)
}

// sessions returns the registry for kind. Callers hold mu.
func (m *SessionManager) sessions(kind SessionKind) map[string]*Session {
	if kind == KindForward {
		return m.forwards
	}
	return m.inspectors
}

// StartForward spawns a port forwarder. The call succeeds once the process is
// spawned; a later non-zero exit is only logged. A second forward for a key
// that is still live fails with ErrForwardExists.
func (m *SessionManager) StartForward(ctx context.Context, exe definitions.Executable, hostPort, servicePort int, device string) (*Session, error) {
	key := ForwardKey(servicePort, hostPort)
	if err := ctx.Err(); err != nil {
		return nil, &definitions.SessionError{Kind: string(KindForward), Key: key, Err: err}
	}

	m.mu.Lock()
	if _, ok := m.forwards[key]; ok {
		m.mu.Unlock()
		return nil, &definitions.SessionError{Kind: string(KindForward), Key: key, Err: definitions.ErrForwardExists}
	}
	log.Debug().Str("device", device).Msgf("[ForwardPort] forwarding ports %s", key)
	s, err := startSession(KindForward, key, device, exe, []string{"--forward", "--port", key, "-d", device})
	if err != nil {
		m.mu.Unlock()
		return nil, &definitions.SessionError{Kind: string(KindForward), Key: key, Err: err}
	}
	m.forwards[key] = s
	m.mu.Unlock()

	s.watch(
		func(b []byte) {
			log.Debug().Str("forward", key).Str("output", strings.TrimSpace(string(b))).Msg("[ForwardPort] process output")
		},
		func(b []byte) {
			log.Error().Str("forward", key).Msgf("Forwarding process stderr: %s", strings.TrimSpace(string(b)))
		},
	)
	go func() {
		<-s.done
		if s.exitCode != 0 {
			log.Debug().Str("forward", key).Msgf("Forwarding process exited with code %d", s.exitCode)
		}
		m.forget(KindForward, key, s)
	}()
	return s, nil
}

// OpenInspector spawns a web inspector for pkg on device and waits for its
// first event. The first stdout chunk wins unconditionally and carries the
// URL. A stderr chunk or an exit before any output is a failure, whatever
// the exit code. The exit event is only published after both streams are
// drained, so it can never overtake stdout. DestroyAll also reaches an
// inspector that is still waiting.
func (m *SessionManager) OpenInspector(ctx context.Context, exe definitions.Executable, device, pkg string, timeout time.Duration) (*Session, error) {
	id := uuid.NewString()
	log.Debug().Str("device", device).Str("app", pkg).Msg("[OpenInspector] getting web inspector")

	m.mu.Lock()
	s, err := startSession(KindInspector, id, device, exe, []string{"--device", device, "--app", pkg})
	if err != nil {
		m.mu.Unlock()
		return nil, &definitions.SessionError{Kind: string(KindInspector), Key: id, Err: err}
	}
	m.starting[s] = struct{}{}
	m.mu.Unlock()

	ready := m.awaitReady(ctx, s, timeout, helper.ExtractInspectorURL)

	m.mu.Lock()
	_, live := m.starting[s]
	delete(m.starting, s)
	if live && ready == nil {
		m.inspectors[id] = s
	}
	m.mu.Unlock()

	if ready != nil {
		return nil, ready
	}
	if !live {
		s.Stop(m.grace)
		return nil, &definitions.SessionError{Kind: string(KindInspector), Key: id, Err: errTornDown}
	}
	go func() {
		<-s.done
		m.forget(KindInspector, id, s)
	}()
	return s, nil
}

// StartServer spawns the local web server for appDir and waits for its first
// output line, which carries the served URL. Only one server runs at a time;
// a server still starting counts as running.
func (m *SessionManager) StartServer(ctx context.Context, exe definitions.Executable, appDir string, port int, timeout time.Duration) (*Session, error) {
	var args []string
	if port > 0 {
		args = append(args, "--port", strconv.Itoa(port))
	}
	args = append(args, appDir)

	m.mu.Lock()
	if running := m.server; running != nil {
		if _, exited := running.ExitCode(); !exited {
			m.mu.Unlock()
			return nil, &definitions.SessionError{Kind: string(KindServer), Key: running.ID, Err: errors.New("local server already running")}
		}
	}
	s, err := startSession(KindServer, appDir, "", exe, args)
	if err != nil {
		m.mu.Unlock()
		return nil, &definitions.SessionError{Kind: string(KindServer), Key: appDir, Err: err}
	}
	m.server = s
	m.mu.Unlock()

	ready := m.awaitReady(ctx, s, timeout, helper.ExtractURL)

	m.mu.Lock()
	live := m.server == s
	if ready != nil && live {
		m.server = nil
	}
	m.mu.Unlock()

	if ready != nil {
		return nil, ready
	}
	if !live {
		s.Stop(m.grace)
		return nil, &definitions.SessionError{Kind: string(KindServer), Key: appDir, Err: errTornDown}
	}
	return s, nil
}

type sessionEvent struct {
	stream string
	data   []byte
}

func (m *SessionManager) awaitReady(ctx context.Context, s *Session, timeout time.Duration, extract func(string) string) error {
	events := make(chan sessionEvent, 3)
	var outOnce, errOnce sync.Once
	s.watch(
		func(b []byte) {
			log.Debug().Str("session", s.ID).Str("output", strings.TrimSpace(string(b))).Msgf("[%s] process result", s.Kind)
			outOnce.Do(func() { events <- sessionEvent{stream: "stdout", data: b} })
		},
		func(b []byte) {
			log.Error().Str("session", s.ID).Msgf("%s process stderr: %s", s.Kind, strings.TrimSpace(string(b)))
			errOnce.Do(func() { events <- sessionEvent{stream: "stderr", data: b} })
		},
	)
	go func() {
		<-s.done
		events <- sessionEvent{stream: "close"}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	fail := func(err error, stderr string, code int) error {
		s.Stop(m.grace)
		return &definitions.SessionError{Kind: string(s.Kind), Key: s.ID, Stderr: stderr, ExitCode: code, Err: err}
	}

	select {
	case ev := <-events:
		switch ev.stream {
		case "stdout":
			s.URL = extract(string(ev.data))
			return nil
		case "stderr":
			return fail(fmt.Errorf("%s process reported an error", s.Kind), string(ev.data), 0)
		default:
			log.Debug().Str("session", s.ID).Msgf("%s process exited with code %d", s.Kind, s.exitCode)
			return fail(fmt.Errorf("%s process exited with code %d before reporting a URL", s.Kind, s.exitCode), "", s.exitCode)
		}
	case <-ctx.Done():
		return fail(ctx.Err(), "", 0)
	case <-timer.C:
		return fail(definitions.ErrCommandTimeout, "", 0)
	}
}

// forget drops key if it still points at s; teardown may have replaced the map.
func (m *SessionManager) forget(kind SessionKind, key string, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := m.sessions(kind)
	if cur, ok := sessions[key]; ok && cur == s {
		delete(sessions, key)
	}
}

// StopForward tears down one forward session.
func (m *SessionManager) StopForward(key string) bool {
	m.mu.Lock()
	s, ok := m.forwards[key]
	delete(m.forwards, key)
	m.mu.Unlock()
	if ok {
		s.Stop(m.grace)
	}
	return ok
}

// CloseInspector tears down one inspection session.
func (m *SessionManager) CloseInspector(id string) bool {
	m.mu.Lock()
	s, ok := m.inspectors[id]
	delete(m.inspectors, id)
	m.mu.Unlock()
	if ok {
		s.Stop(m.grace)
	}
	return ok
}

func (m *SessionManager) StopServer() bool {
	m.mu.Lock()
	s := m.server
	m.server = nil
	m.mu.Unlock()
	if s != nil {
		s.Stop(m.grace)
	}
	return s != nil
}

func (m *SessionManager) Forward(key string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.forwards[key]
	return s, ok
}

func (m *SessionManager) Inspector(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.inspectors[id]
	return s, ok
}

func (m *SessionManager) ForwardKeys() []string {
	m.mu.Lock()
	keys := lo.Keys(m.forwards)
	m.mu.Unlock()
	sort.Strings(keys)
	return keys
}

func (m *SessionManager) InspectorIDs() []string {
	m.mu.Lock()
	ids := lo.Keys(m.inspectors)
	m.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// DestroyAll tears down every forward and inspection session, including
// inspectors still waiting to become ready. The maps are emptied before it
// returns; the processes are killed after the grace period.
func (m *SessionManager) DestroyAll() {
	m.mu.Lock()
	forwards, inspectors, starting := m.forwards, m.inspectors, m.starting
	m.forwards = make(map[string]*Session)
	m.inspectors = make(map[string]*Session)
	m.starting = make(map[*Session]struct{})
	m.mu.Unlock()

	for _, s := range forwards {
		s.Stop(m.grace)
	}
	for _, s := range inspectors {
		s.Stop(m.grace)
	}
	for s := range starting {
		s.Stop(m.grace)
	}
	if n := len(forwards) + len(inspectors) + len(starting); n > 0 {
		log.Debug().Int("forwards", len(forwards)).Int("inspectors", len(inspectors)).Int("starting", len(starting)).Msg("[DestroyAll] sessions torn down")
	}
}
