// SPDX-License-Identifier: MPL-2.0

// Package generator invokes the external introspection toolchain that turns a
// library module into specification bytes.
//
// The Gateway guarantees at most one in-flight generation per library name.
// Concurrent callers for the same name share the flight's result or failure;
// different names generate in parallel. Results are never remembered once a
// flight completes, so a failed name is retried by the next call.
package generator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/rfls/libspec/pkg/libdoc"
)

// DefaultTimeout bounds a single generation when no timeout is configured.
const DefaultTimeout = 60 * time.Second

type (
	// Request describes one generation.
	Request struct {
		Name libdoc.LibraryName
		// ModulePaths are searched for the library module, in order; later
		// entries take precedence.
		ModulePaths []string
	}

	// Toolchain produces specification bytes for a library.
	Toolchain interface {
		Generate(ctx context.Context, req Request) ([]byte, error)
	}

	// ToolchainFunc adapts a function to the Toolchain interface.
	ToolchainFunc func(ctx context.Context, req Request) ([]byte, error)

	// Gateway serializes generation per library name.
	Gateway struct {
		toolchain   Toolchain
		timeout     time.Duration
		logger      *log.Logger
		group       singleflight.Group
		mu          sync.Mutex
		inflight    map[libdoc.LibraryName]struct{}
		invocations atomic.Int64
	}

	// Option configures a Gateway.
	Option func(*Gateway)
)

// Generate implements Toolchain.
func (f ToolchainFunc) Generate(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// WithTimeout sets the per-flight timeout. Non-positive values select
// DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the logger used for flight diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGateway creates a Gateway around toolchain.
func NewGateway(toolchain Toolchain, opts ...Option) *Gateway {
	g := &Gateway{
		toolchain: toolchain,
		timeout:   DefaultTimeout,
		logger:    log.Default().WithPrefix("generator"),
		inflight:  make(map[libdoc.LibraryName]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns specification bytes for name. A caller whose ctx ends
// stops waiting, but the shared flight keeps running for the other joiners
// until its own timeout.
func (g *Gateway) Generate(ctx context.Context, name libdoc.LibraryName, modulePaths []string) ([]byte, error) {
	if err := name.Validate(); err != nil {
		return nil, err
	}

	paths := slices.Clone(modulePaths)
	ch := g.group.DoChan(string(name), func() (any, error) {
		return g.run(context.WithoutCancel(ctx), name, paths)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Joiners share the slice; hand each its own copy.
		return slices.Clone(res.Val.([]byte)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InFlight reports whether a generation for name is currently running.
func (g *Gateway) InFlight(name libdoc.LibraryName) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[name]
	return ok
}

// Invocations returns how many times the toolchain has been called.
func (g *Gateway) Invocations() int64 {
	return g.invocations.Load()
}

func (g *Gateway) run(ctx context.Context, name libdoc.LibraryName, paths []string) ([]byte, error) {
	g.setInFlight(name, true)
	defer g.setInFlight(name, false)
	g.invocations.Add(1)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	g.logger.Debug("generating library spec", "library", name, "paths", len(paths))
	data, err := g.toolchain.Generate(ctx, Request{Name: name, ModulePaths: paths})
	err = classify(ctx, name, data, err)
	if err != nil {
		g.logger.Debug("generation failed", "library", name, "elapsed", time.Since(start), "error", err)
		return nil, err
	}
	g.logger.Debug("generated library spec", "library", name, "elapsed", time.Since(start), "bytes", len(data))
	return data, nil
}

func (g *Gateway) setInFlight(name libdoc.LibraryName, on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if on {
		g.inflight[name] = struct{}{}
	} else {
		delete(g.inflight, name)
	}
}

// classify maps a toolchain outcome onto the package's error taxonomy.
func classify(ctx context.Context, name libdoc.LibraryName, data []byte, err error) error {
	var genErr *GenerationError
	var envErr *EnvironmentFaultError
	switch {
	case err == nil && len(data) == 0:
		return &GenerationError{Name: name, Err: errors.New("toolchain produced no output")}
	case err == nil:
		return nil
	case errors.As(err, &envErr), errors.As(err, &genErr):
		return err
	case errors.Is(err, ErrToolchainUnavailable):
		return err
	case ctx.Err() != nil:
		return &GenerationError{Name: name, Err: fmt.Errorf("timed out: %w", ctx.Err())}
	default:
		return &GenerationError{Name: name, Err: err}
	}
}
