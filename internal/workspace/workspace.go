// Package workspace wires one session together: the model service, the node
// tree over it and the buses collaborators subscribe to. Everything that
// mutates the model goes through a Workspace so the tree is refreshed after
// every mutation the session itself performs.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"surveyor/internal/event"
	"surveyor/internal/model"
	"surveyor/internal/service"
	"surveyor/internal/store"
	"surveyor/internal/trace"
	"surveyor/internal/tree"
)

// ReloadEvent is published after every reload, successful or not.
type ReloadEvent struct {
	// Err is the reload failure; the model is empty when it is set.
	Err            error
	Configurations int
	External       bool // triggered by an edit on disk
}

// Options configures a Workspace.
type Options struct {
	Service  service.Options
	Grouping tree.Grouping
	Logger   *slog.Logger
	Tracer   trace.Tracer
	// Now stamps imported results that carry no timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Workspace is the explicit dependency root of a session.
type Workspace struct {
	Service *service.Service
	Tree    *tree.Tree
	Changes *event.Bus[tree.Change]
	Reloads *event.Bus[ReloadEvent]

	log    *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// New builds the service, bus and tree. Nothing is read until Start.
func New(opts Options) *Workspace {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	tr := opts.Tracer
	if tr == nil {
		tr = trace.Nop
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sopts := opts.Service
	if sopts.Logger == nil {
		sopts.Logger = log
	}
	if sopts.Tracer == nil {
		sopts.Tracer = tr
	}

	svc := service.New(sopts)
	changes := event.NewBus[tree.Change]()
	return &Workspace{
		Service: svc,
		Tree: tree.New(svc, tree.Options{
			Grouping: opts.Grouping,
			Bus:      changes,
			Logger:   log.With("component", "tree"),
			Tracer:   tr,
		}),
		Changes: changes,
		Reloads: event.NewBus[ReloadEvent](),
		log:     log,
		tracer:  tr,
		now:     now,
	}
}

// Start reads the backing file and the analyzer metadata. Metadata problems
// never fail Start.
func (w *Workspace) Start(ctx context.Context) error {
	span := trace.Begin(w.tracer, trace.ScopeSession, "start", 0)
	defer span.End("")
	if err := w.Service.Open(ctx); err != nil {
		return err
	}
	meta := w.Service.ReadCliMeta(ctx)
	w.log.Debug("workspace started", "path", w.Service.Path(), "configurations", len(w.Service.Model().Configurations), "cli", meta.Version)
	return nil
}

// HandleExternalEdit reloads when the backing file differs from what the
// session last read or wrote. It reports whether a reload happened.
func (w *Workspace) HandleExternalEdit(ctx context.Context) (bool, error) {
	changed, err := w.Service.ChangedOnDisk()
	if err != nil {
		w.log.Warn("cannot inspect model file", "err", err)
	}
	if !changed && err == nil {
		return false, nil
	}
	return true, w.reload(ctx, true)
}

// Reload re-reads the backing file unconditionally.
func (w *Workspace) Reload(ctx context.Context) error {
	return w.reload(ctx, false)
}

// reload swaps the model, drops every node and publishes exactly one
// unscoped change. A failed read leaves an empty model and is returned.
func (w *Workspace) reload(ctx context.Context, external bool) error {
	span := trace.Begin(w.tracer, trace.ScopeSession, "reload", 0)
	err := w.Service.Reload(ctx)
	if err != nil {
		w.log.Error("model reload failed", "path", w.Service.Path(), "err", err)
	}
	w.Tree.Reset()
	w.Tree.Refresh(tree.NoNode)
	span.End(errString(err))

	w.Reloads.Publish(ReloadEvent{
		Err:            err,
		Configurations: len(w.Service.Model().Configurations),
		External:       external,
	})
	return err
}

// Shutdown saves the model.
func (w *Workspace) Shutdown(ctx context.Context) error {
	return w.Service.Save(ctx)
}

// Configuration finds a configuration by ID or by name.
func (w *Workspace) Configuration(ref string) (*model.Configuration, error) {
	m := w.Service.Model()
	if c := m.Configuration(ref); c != nil {
		return c, nil
	}
	if c := m.ConfigurationByName(ref); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("%w %q", model.ErrUnknownConfiguration, ref)
}

// LoadConfiguration constructs or attaches a configuration and refreshes the roots.
func (w *Workspace) LoadConfiguration(ctx context.Context, desc service.Descriptor) (*model.Configuration, bool, error) {
	c, created, err := w.Service.Load(ctx, desc)
	if err != nil {
		return nil, false, err
	}
	w.Tree.Refresh(tree.NoNode)
	return c, created, nil
}

// DeleteConfiguration removes a configuration and its node.
func (w *Workspace) DeleteConfiguration(ref string) error {
	c, err := w.Configuration(ref)
	if err != nil {
		return err
	}
	if err := w.Service.Delete(c.ID); err != nil {
		return err
	}
	if id := w.rootFor(c.ID); id.IsValid() {
		w.Tree.Delete(id)
	}
	w.Tree.Refresh(tree.NoNode)
	return nil
}

// MarkComplete marks the hint behind a tree node complete.
func (w *Workspace) MarkComplete(id tree.NodeID) error {
	return w.Tree.SetComplete(id)
}

// CompleteHint marks a hint complete by configuration reference and hint ID.
func (w *Workspace) CompleteHint(ref, hintID string) error {
	c, err := w.Configuration(ref)
	if err != nil {
		return err
	}
	if err := w.Service.MarkComplete(c.ID, hintID); err != nil {
		return err
	}
	w.refreshConfig(c.ID)
	return nil
}

// ImportResults installs analysis output from a results file into the
// configuration and refreshes its node.
func (w *Workspace) ImportResults(ctx context.Context, ref, path string) (*model.Summary, error) {
	c, err := w.Configuration(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	summary, hints, err := store.DecodeResults(data, store.FormatForPath(path), w.now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	span := trace.Begin(w.tracer, trace.ScopeSession, "import", 0).WithExtra("hints", fmt.Sprint(len(hints)))
	defer span.End("")
	if err := w.Service.ApplyResults(c.ID, summary, hints); err != nil {
		return nil, err
	}
	// every issue was replaced; a rerun may keep the timestamp
	if id := w.rootFor(c.ID); id.IsValid() {
		w.Tree.Rebuild(id)
	} else {
		w.Tree.Refresh(tree.NoNode)
	}
	return c.Summary, nil
}

func (w *Workspace) refreshConfig(configID string) {
	if id := w.rootFor(configID); id.IsValid() {
		w.Tree.Refresh(id)
		return
	}
	w.Tree.Refresh(tree.NoNode)
}

func (w *Workspace) rootFor(configID string) tree.NodeID {
	for _, id := range w.Tree.Roots() {
		if w.Tree.ConfigID(id) == configID {
			return id
		}
	}
	return tree.NoNode
}

// FindHint returns the node of a hint, materializing the path to it.
func (w *Workspace) FindHint(configRef, hintID string) (tree.NodeID, error) {
	c, err := w.Configuration(configRef)
	if err != nil {
		return tree.NoNode, err
	}
	if c.Hint(hintID) == nil {
		return tree.NoNode, fmt.Errorf("%w %q in configuration %q", model.ErrUnknownHint, hintID, c.Name)
	}
	root := w.rootFor(c.ID)
	if id := w.findHint(root, hintID); id.IsValid() {
		return id, nil
	}
	return tree.NoNode, errors.New("hint is not reachable in the tree")
}

func (w *Workspace) findHint(id tree.NodeID, hintID string) tree.NodeID {
	if !id.IsValid() {
		return tree.NoNode
	}
	for _, child := range w.Tree.Children(id) {
		if w.Tree.Kind(child) == tree.KindHint {
			if w.Tree.HintID(child) == hintID {
				return child
			}
			continue
		}
		if found := w.findHint(child, hintID); found.IsValid() {
			return found
		}
	}
	return tree.NoNode
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
