package ares

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/spance/webos-driver-go/webos/definitions"
)

// AresDriver drives one webOS device through the ares CLI toolchain.
type AresDriver struct {
	opts     definitions.Options
	executor definitions.Executor
	locator  *Locator
	runner   *Runner
	sessions *SessionManager

	mu       sync.RWMutex
	deviceID string
	aresPath string

	versionMu sync.Mutex
	version   *definitions.AresVersion
}

type Option func(*AresDriver)

// WithExecutor replaces the process boundary used by the locator and runner.
func WithExecutor(executor definitions.Executor) Option {
	return func(d *AresDriver) { d.executor = executor }
}

func WithLocator(locator *Locator) Option {
	return func(d *AresDriver) { d.locator = locator }
}

// NewAresDriver builds a driver and resolves the primary ares executable.
func NewAresDriver(ctx context.Context, opts definitions.Options, options ...Option) (*AresDriver, error) {
	opts.ApplyDefaults()
	d := &AresDriver{
		opts:     opts,
		deviceID: opts.DeviceID,
	}
	for _, o := range options {
		o(d)
	}
	if d.executor == nil {
		d.executor = OSExecutor{}
	}
	if d.locator == nil {
		d.locator = NewLocator(d.executor, opts.AresRoot)
	}
	d.runner = NewRunner(d.executor, opts.ExecTimeout, opts.RetryDelay)
	d.sessions = NewSessionManager(opts.ForwardGrace)

	path, err := d.locator.Resolve(ctx, opts.Executables.Ares.Path)
	if err != nil {
		return nil, err
	}
	d.aresPath = path
	log.Debug().Str("path", path).Str("device", d.deviceID).Msg("[NewAresDriver] ares driver ready")
	return d, nil
}

func (d *AresDriver) DeviceID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.deviceID
}

func (d *AresDriver) SetDeviceID(id string) {
	d.mu.Lock()
	d.deviceID = id
	d.mu.Unlock()
}

// GetAresPath returns the primary executable path resolved at construction.
func (d *AresDriver) GetAresPath() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.aresPath
}

func (d *AresDriver) Options() definitions.Options {
	return d.opts
}

func (d *AresDriver) primary() definitions.Executable {
	exe := d.opts.Executables.Ares
	exe.Path = d.GetAresPath()
	return exe
}

// ForwardPort forwards servicePort on the configured device to hostPort.
func (d *AresDriver) ForwardPort(ctx context.Context, hostPort, servicePort int) (string, error) {
	if _, err := d.sessions.StartForward(ctx, d.opts.Executables.Novacom, hostPort, servicePort, d.DeviceID()); err != nil {
		return "", err
	}
	return "Ports forwarded!", nil
}

func (d *AresDriver) StopForward(key string) bool {
	return d.sessions.StopForward(key)
}

// OpenWebInspector starts an inspection session for pkg and returns its id
// and the inspector URL.
func (d *AresDriver) OpenWebInspector(ctx context.Context, pkg string) (string, string, error) {
	s, err := d.sessions.OpenInspector(ctx, d.opts.Executables.Inspect, d.DeviceID(), pkg, d.opts.ExecTimeout)
	if err != nil {
		return "", "", fmt.Errorf("error while getting web inspector: %w", err)
	}
	log.Info().Str("app", pkg).Str("url", s.URL).Msg("[OpenWebInspector] inspector ready")
	return s.ID, s.URL, nil
}

func (d *AresDriver) CloseInspector(id string) bool {
	return d.sessions.CloseInspector(id)
}

// StartServer serves appDir with the local ares server and returns its URL.
func (d *AresDriver) StartServer(ctx context.Context, appDir string, port int) (string, error) {
	s, err := d.sessions.StartServer(ctx, d.opts.Executables.Server, appDir, port, d.opts.ExecTimeout)
	if err != nil {
		return "", fmt.Errorf("error while starting local server: %w", err)
	}
	return s.URL, nil
}

func (d *AresDriver) StopServer() bool {
	return d.sessions.StopServer()
}

// Sessions exposes the session manager for inspection.
func (d *AresDriver) Sessions() *SessionManager {
	return d.sessions
}

// DestroyAll tears down every forward and inspection session.
func (d *AresDriver) DestroyAll() {
	d.sessions.DestroyAll()
}

// Close tears down every session, and the local server unless
// SuppressKillServer is set.
func (d *AresDriver) Close() {
	d.sessions.DestroyAll()
	if !d.opts.SuppressKillServer {
		d.sessions.StopServer()
	}
}
