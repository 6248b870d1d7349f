// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package fixupsdk provides the SDK for building hotswap process plugins.
//
// Process plugins are standalone executables that talk to the hotswap host
// over net/rpc using the HashiCorp go-plugin framework. They implement the
// same fixup.Fixer contract as native plugins; the host dispenses the Fixer
// registered under fixup.EntrySymbol.
//
// Example usage:
//
//	package main
//
//	import (
//		"github.com/holomush/hotswap/pkg/fixup"
//		"github.com/holomush/hotswap/pkg/fixupsdk"
//	)
//
//	type upper struct{}
//
//	func (upper) Fix(source string, r fixup.TextRange) (fixup.TextEdit, error) {
//		b := fixup.NewBuilder()
//		b.Replace(r, strings.ToUpper(source[r.Start:r.End]))
//		return b.Finish(), nil
//	}
//
//	func main() {
//		fixupsdk.Serve(&fixupsdk.ServeConfig{Fixer: upper{}})
//	}
package fixupsdk

import (
	"errors"
	"fmt"
	"net/rpc"

	hashiplug "github.com/hashicorp/go-plugin"

	"github.com/holomush/hotswap/pkg/fixup"
)

// HandshakeConfig is the go-plugin handshake configuration.
// Both host and plugins must use the same values.
var HandshakeConfig = hashiplug.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "HOTSWAP_PLUGIN",
	MagicCookieValue: "hotswap-fixup-v1",
}

// PluginMap returns the plugin set served under symbol. The host passes a nil
// impl; plugins pass their Fixer.
func PluginMap(symbol string, impl fixup.Fixer) map[string]hashiplug.Plugin {
	return map[string]hashiplug.Plugin{
		symbol: &RPCPlugin{Impl: impl},
	}
}

// ServeConfig configures the plugin server.
type ServeConfig struct {
	// Fixer is the fix-up implementation.
	// Required; Serve will panic if nil.
	Fixer fixup.Fixer

	// Symbol overrides the name the Fixer is served under.
	// Defaults to fixup.EntrySymbol.
	Symbol string
}

// Serve starts the plugin server. This should be called from main().
// It blocks and never returns under normal operation.
func Serve(config *ServeConfig) {
	if config == nil {
		panic("fixupsdk: config cannot be nil")
	}
	if config.Fixer == nil {
		panic("fixupsdk: config.Fixer cannot be nil")
	}
	symbol := config.Symbol
	if symbol == "" {
		symbol = fixup.EntrySymbol
	}
	hashiplug.Serve(&hashiplug.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginMap(symbol, config.Fixer),
	})
}

// RPCPlugin implements go-plugin's Plugin interface for net/rpc.
type RPCPlugin struct {
	// Impl is used by the plugin side (not used by the host).
	Impl fixup.Fixer
}

// Server returns the RPC server (called by plugin process).
func (p *RPCPlugin) Server(_ *hashiplug.MuxBroker) (interface{}, error) {
	if p.Impl == nil {
		return nil, errors.New("fixupsdk: fixer implementation is nil")
	}
	return &RPCServer{Impl: p.Impl}, nil
}

// Client returns a Fixer backed by the RPC connection (called by host process).
func (p *RPCPlugin) Client(_ *hashiplug.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &RPCClient{client: c}, nil
}

// FixArgs carries a Fix call across the process boundary.
type FixArgs struct {
	Source string
	Range  fixup.TextRange
}

// RPCServer adapts a Fixer to net/rpc.
type RPCServer struct {
	Impl fixup.Fixer
}

// Fix implements the server side of Fixer.Fix.
func (s *RPCServer) Fix(args FixArgs, resp *fixup.TextEdit) error {
	edit, err := s.Impl.Fix(args.Source, args.Range)
	if err != nil {
		return fmt.Errorf("fixer error: %w", err)
	}
	*resp = edit
	return nil
}

// RPCClient is the host-side Fixer that forwards calls to the plugin process.
type RPCClient struct {
	client *rpc.Client
}

// Fix implements fixup.Fixer.
func (c *RPCClient) Fix(source string, r fixup.TextRange) (fixup.TextEdit, error) {
	var resp fixup.TextEdit
	if err := c.client.Call("Plugin.Fix", FixArgs{Source: source, Range: r}, &resp); err != nil {
		return fixup.TextEdit{}, fmt.Errorf("plugin Fix failed: %w", err)
	}
	return resp, nil
}

// Compile-time interface checks.
var (
	_ hashiplug.Plugin = (*RPCPlugin)(nil)
	_ fixup.Fixer      = (*RPCClient)(nil)
)
