// Package translator owns the connection to the translation model: lazy
// loading, serialized generation, the unload policy applied at job
// boundaries, and the PDF and free-text request shapes built on top.
package translator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"layout-translator/internal/logger"
)

// ErrNotLoaded is returned by operations that need a loaded model when
// the backend produced none.
var ErrNotLoaded = errors.New("translator model not loaded")

// State is the lifecycle state of a Handle.
type State int

const (
	Unloaded State = iota
	Loaded
	Offloaded
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Offloaded:
		return "offloaded"
	}
	return "unloaded"
}

// UnloadMode selects what Release does with the model.
type UnloadMode string

const (
	// UnloadDelete drops the model; the next call loads it again.
	UnloadDelete UnloadMode = "delete"
	// UnloadOffload asks the backend to park the model in cheaper memory.
	UnloadOffload UnloadMode = "offload"
)

// ParseUnloadMode accepts "delete", "offload" and "cpu".
func ParseUnloadMode(s string) (UnloadMode, error) {
	switch s {
	case "delete", "":
		return UnloadDelete, nil
	case "offload", "cpu":
		return UnloadOffload, nil
	}
	return "", fmt.Errorf("unknown unload mode %q", s)
}

// Backend produces a ready chat model.
type Backend interface {
	Load(ctx context.Context) (model.BaseChatModel, error)
}

// Offloader is implemented by backends that can park a model without
// discarding it.
type Offloader interface {
	Offload(ctx context.Context) error
	Restore(ctx context.Context) error
}

// TemplateKind names a retained prompt template.
type TemplateKind int

const (
	SegmentTemplate TemplateKind = iota
	ChatTemplate
)

// HandleOptions configures a Handle.
type HandleOptions struct {
	Mode UnloadMode
	// KeepTemplates retains compiled prompt templates across Release.
	KeepTemplates bool
}

// Handle guards one translation model. Load, generation and release all
// run under the same mutex, so generation calls are serialized.
type Handle struct {
	backend Backend
	opts    HandleOptions

	mu        sync.Mutex
	loaded    atomic.Bool
	model     model.BaseChatModel
	offloaded bool
	templates map[TemplateKind]prompt.ChatTemplate
	loads     int
}

// NewHandle creates an unloaded handle.
func NewHandle(b Backend, opts HandleOptions) *Handle {
	if opts.Mode == "" {
		opts.Mode = UnloadDelete
	}
	return &Handle{backend: b, opts: opts}
}

// State reports the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case h.model != nil && !h.offloaded:
		return Loaded
	case h.model != nil && h.offloaded:
		return Offloaded
	}
	return Unloaded
}

// Loads counts how many times the backend was asked for a fresh model.
func (h *Handle) Loads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loads
}

// HasTemplates reports whether any compiled template is retained.
func (h *Handle) HasTemplates() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.templates) > 0
}

// Acquire loads the model if needed. Concurrent callers load it once.
func (h *Handle) Acquire(ctx context.Context) error {
	if h.loaded.Load() {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.acquireLocked(ctx)
}

func (h *Handle) acquireLocked(ctx context.Context) error {
	if h.loaded.Load() {
		return nil
	}

	if h.offloaded && h.model != nil {
		if off, ok := h.backend.(Offloader); ok {
			if err := off.Restore(ctx); err == nil {
				h.offloaded = false
				h.loaded.Store(true)
				logger.Info("translator model restored")
				return nil
			} else {
				logger.Warn("restore failed, loading a fresh model", logger.Err(err))
			}
		}
		h.model = nil
		h.offloaded = false
	}

	start := time.Now()
	m, err := h.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load translator model: %w", err)
	}
	// a typed nil from a backend passes this check and fails on Generate
	if m == nil {
		return ErrNotLoaded
	}
	h.model = m
	h.loads++
	h.loaded.Store(true)
	logger.Info("translator model loaded", logger.Duration("elapsed", time.Since(start)))
	return nil
}

func (h *Handle) templateLocked(kind TemplateKind) prompt.ChatTemplate {
	if h.templates == nil {
		h.templates = make(map[TemplateKind]prompt.ChatTemplate)
	}
	t, ok := h.templates[kind]
	if !ok {
		t = newTemplate(kind)
		h.templates[kind] = t
	}
	return t
}

// Generate formats the template of kind with vars and runs the model.
// It loads the model first when needed.
func (h *Handle) Generate(ctx context.Context, kind TemplateKind, vars map[string]any, opts ...model.Option) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.acquireLocked(ctx); err != nil {
		return "", err
	}
	msgs, err := h.templateLocked(kind).Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}
	out, err := h.model.Generate(ctx, msgs, opts...)
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	return out.Content, nil
}

// Messages formats a template without generating. It is used for logging
// and tests.
func (h *Handle) Messages(ctx context.Context, kind TemplateKind, vars map[string]any) ([]*schema.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.templateLocked(kind).Format(ctx, vars)
}

// Release applies the unload mode. Offloading falls back to deleting when
// the backend cannot offload or the attempt fails.
func (h *Handle) Release(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.opts.KeepTemplates {
		h.templates = nil
	}
	if h.model == nil || h.offloaded {
		h.loaded.Store(false)
		return
	}

	if h.opts.Mode == UnloadOffload {
		if off, ok := h.backend.(Offloader); ok {
			err := off.Offload(ctx)
			if err == nil {
				h.offloaded = true
				h.loaded.Store(false)
				logger.Info("translator model offloaded")
				return
			}
			logger.Warn("offload failed, deleting model instead", logger.Err(err))
		} else {
			logger.Warn("backend cannot offload, deleting model instead")
		}
	}

	h.model = nil
	h.offloaded = false
	h.loaded.Store(false)
	logger.Info("translator model released")
}
