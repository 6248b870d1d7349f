// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package goplugin opens fix-up plugins that run as child processes using
// HashiCorp's go-plugin system over net/rpc.
package goplugin

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/hashicorp/go-hclog"
	hashiplug "github.com/hashicorp/go-plugin"

	"github.com/holomush/hotswap/internal/dylib"
	"github.com/holomush/hotswap/pkg/fixup"
	"github.com/holomush/hotswap/pkg/fixupsdk"
)

// Compile-time interface checks.
var (
	_ dylib.Opener  = (*Opener)(nil)
	_ dylib.Library = (*library)(nil)
)

// PluginClient wraps go-plugin client for testability.
type PluginClient interface {
	// Client returns the RPC client protocol, starting the process if needed.
	Client() (hashiplug.ClientProtocol, error)
	// Kill terminates the plugin process.
	Kill()
}

// ClientFactory creates plugin clients.
type ClientFactory interface {
	// NewClient creates a client for the given executable, serving symbol.
	NewClient(execPath, symbol string) PluginClient
}

// DefaultClientFactory creates real go-plugin clients.
type DefaultClientFactory struct {
	// Logger receives go-plugin's own log output. Defaults to an Info-level
	// logger on stderr.
	Logger hclog.Logger
}

// NewClient creates a real go-plugin client.
func (f *DefaultClientFactory) NewClient(execPath, symbol string) PluginClient {
	logger := f.Logger
	if logger == nil {
		logger = hclog.New(&hclog.LoggerOptions{
			Name:   "hotswap-plugin",
			Output: os.Stderr,
			Level:  hclog.Info,
		})
	}
	return hashiplug.NewClient(&hashiplug.ClientConfig{
		HandshakeConfig:  fixupsdk.HandshakeConfig,
		Plugins:          fixupsdk.PluginMap(symbol, nil),
		Cmd:              exec.Command(execPath), // #nosec G204 -- execPath is a shadow copy of the configured library
		AllowedProtocols: []hashiplug.Protocol{hashiplug.ProtocolNetRPC},
		Logger:           logger,
	})
}

// Opener starts plugin executables and exposes them as dylib.Library values.
//
// Killing the child process is a real unload, so a process library can be
// rebuilt and reopened any number of times.
type Opener struct {
	clientFactory ClientFactory
	symbol        string
}

// Option configures an Opener.
type Option func(*Opener)

// WithSymbol sets the name the plugin serves its Fixer under.
// Defaults to fixup.EntrySymbol.
func WithSymbol(symbol string) Option {
	return func(o *Opener) {
		if symbol != "" {
			o.symbol = symbol
		}
	}
}

// NewOpener creates an opener backed by real plugin processes.
func NewOpener(opts ...Option) *Opener {
	return NewOpenerWithFactory(&DefaultClientFactory{}, opts...)
}

// NewOpenerWithFactory creates an opener with a custom client factory (for testing).
// Panics if factory is nil.
func NewOpenerWithFactory(factory ClientFactory, opts ...Option) *Opener {
	if factory == nil {
		panic("goplugin: factory cannot be nil")
	}
	o := &Opener{
		clientFactory: factory,
		symbol:        fixup.EntrySymbol,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open copies the executable into the shadow directory, starts it and
// completes the go-plugin handshake.
func (o *Opener) Open(_ context.Context, loc dylib.Location) (dylib.Library, error) {
	shadow, err := dylib.ShadowCopy(loc.Path, loc.ShadowDir)
	if err != nil {
		return nil, err
	}

	client := o.clientFactory.NewClient(shadow, o.symbol)

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		_ = dylib.RemoveShadow(shadow)
		return nil, dylib.ErrLoadFailed(loc.Path, err)
	}

	return &library{
		client: client,
		rpc:    rpcClient,
		path:   shadow,
		source: loc.Path,
	}, nil
}

// library is a running plugin process.
type library struct {
	client PluginClient
	rpc    hashiplug.ClientProtocol
	path   string
	source string

	closeOnce sync.Once
	closeErr  error
}

// Lookup dispenses the named plugin and returns it as a fixup.Constructor.
// A symbol the process does not serve is reported as dylib.ErrSymbolNotFound.
func (l *library) Lookup(symbol string) (any, error) {
	raw, err := l.rpc.Dispense(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dylib.ErrSymbolNotFound, symbol, err) //nolint:errorlint // dispense error text only
	}

	fixer, ok := raw.(fixup.Fixer)
	if !ok {
		return raw, nil
	}

	return fixup.Constructor(func() (fixup.Fixer, error) {
		return fixer, nil
	}), nil
}

func (l *library) Path() string   { return l.path }
func (l *library) Source() string { return l.source }

// Close kills the plugin process and removes its shadow copy.
func (l *library) Close() error {
	l.closeOnce.Do(func() {
		l.client.Kill()
		l.closeErr = dylib.RemoveShadow(l.path)
	})
	return l.closeErr
}
