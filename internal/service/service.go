package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"surveyor/internal/model"
	"surveyor/internal/observ"
	"surveyor/internal/store"
	"surveyor/internal/trace"
)

// Options configures a Service.
type Options struct {
	// Path is the backing file; its extension selects the codec.
	Path string
	// MetaPath points at the analyzer metadata file (TOML). Optional.
	MetaPath string
	Logger   *slog.Logger
	Tracer   trace.Tracer
	// Timer, if set, records open/save/reload phases.
	Timer *observ.Timer
}

// Descriptor identifies a configuration to construct or attach.
type Descriptor struct {
	ID      string
	Name    string
	Options model.Options
}

// Service owns the single domain model of a session. Every node and
// collaborator shares one *Service; nobody holds a copy of the model.
type Service struct {
	path     string
	format   store.Format
	metaPath string
	log      *slog.Logger
	tracer   trace.Tracer
	timer    *observ.Timer

	// swapped wholesale on reload; readers never see a partially read model
	current atomic.Pointer[model.Model]

	mu     sync.Mutex
	digest store.Digest // last content read from or written to path
	broken bool         // last read failed; keep a backup before overwriting
	meta   CliMeta
}

// New creates a service with an empty model. Call Open to read the backing file.
func New(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	tr := opts.Tracer
	if tr == nil {
		tr = trace.Nop
	}
	s := &Service{
		path:     opts.Path,
		format:   store.FormatForPath(opts.Path),
		metaPath: opts.MetaPath,
		log:      log,
		tracer:   tr,
		timer:    opts.Timer,
		meta:     unknownMeta(),
	}
	s.current.Store(model.New())
	return s
}

// Model returns the current model.
func (s *Service) Model() *model.Model {
	return s.current.Load()
}

// Path returns the backing file location.
func (s *Service) Path() string {
	return s.path
}

func (s *Service) tracerFor(ctx context.Context) trace.Tracer {
	if t := trace.FromContext(ctx); t.Enabled() {
		return t
	}
	return s.tracer
}

func (s *Service) phase(name string) func(note string) {
	return s.timer.Begin(name)
}

// Open performs the initial read. A missing file is an empty model, not an error.
func (s *Service) Open(ctx context.Context) error {
	done := s.phase("open")
	span := trace.Begin(s.tracerFor(ctx), trace.ScopeService, "open", 0)
	err := s.read("open", true)
	span.End(errDetail(err))
	done(fmt.Sprintf("%d configurations", len(s.Model().Configurations)))
	return err
}

// Reload discards the in-memory model and re-reads the backing file. On any
// failure the model is replaced by an empty one and the error is returned.
func (s *Service) Reload(ctx context.Context) error {
	done := s.phase("reload")
	span := trace.Begin(s.tracerFor(ctx), trace.ScopeService, "reload", 0)
	err := s.read("reload", false)
	if err != nil {
		trace.Error(s.tracerFor(ctx), trace.ScopeService, "reload", err)
	}
	span.End(errDetail(err))
	done(fmt.Sprintf("%d configurations", len(s.Model().Configurations)))
	return err
}

func (s *Service) read(op string, missingOK bool) error {
	data, digest, err := store.ReadFile(s.path)
	if err != nil {
		if missingOK && errors.Is(err, fs.ErrNotExist) {
			s.swap(model.New(), store.Digest{}, false)
			s.log.Info("no model file yet, starting empty", "path", s.path)
			return nil
		}
		s.swap(model.New(), store.Digest{}, true)
		return ioError(op, s.path, err)
	}
	m, err := store.Decode(data, s.format)
	if err != nil {
		// digest is recorded so the same broken content does not trigger another reload
		s.swap(model.New(), digest, true)
		return parseError(op, s.path, err)
	}
	s.swap(m, digest, false)
	s.log.Debug("model read", "op", op, "path", s.path, "configurations", len(m.Configurations), "digest", digest.String())
	return nil
}

func (s *Service) swap(m *model.Model, digest store.Digest, broken bool) {
	s.mu.Lock()
	s.digest = digest
	s.broken = broken
	s.mu.Unlock()
	s.current.Store(m)
}

// Save writes the whole model. An empty model is written as a valid empty document.
// When the previous read failed, the file on disk is first moved to <path>.bak.
func (s *Service) Save(ctx context.Context) error {
	done := s.phase("save")
	span := trace.Begin(s.tracerFor(ctx), trace.ScopeService, "save", 0)
	err := s.save()
	span.End(errDetail(err))
	done("")
	return err
}

func (s *Service) save() error {
	data, err := store.Encode(s.Model(), s.format)
	if err != nil {
		return parseError("save", s.path, err)
	}

	s.mu.Lock()
	broken := s.broken
	s.mu.Unlock()
	if broken {
		if err := os.Rename(s.path, s.path+".bak"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return ioError("save", s.path, fmt.Errorf("backup unreadable model: %w", err))
		}
		s.log.Warn("previous model file could not be read, kept as backup", "backup", s.path+".bak")
	}

	digest, err := store.WriteFile(s.path, data)
	if err != nil {
		return ioError("save", s.path, err)
	}
	s.mu.Lock()
	s.digest = digest
	s.broken = false
	s.mu.Unlock()
	return nil
}

// ChangedOnDisk reports whether the backing file differs from what this service
// last read or wrote. Our own saves therefore never count as external edits.
func (s *Service) ChangedOnDisk() (bool, error) {
	s.mu.Lock()
	last := s.digest
	s.mu.Unlock()

	_, digest, err := store.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return !last.IsZero(), nil
		}
		return false, ioError("stat", s.path, err)
	}
	return digest != last, nil
}

// Load constructs a configuration from the descriptor or attaches to an
// existing one with the same ID or name. It never starts an analysis.
// The boolean result reports whether a new configuration was created.
func (s *Service) Load(ctx context.Context, desc Descriptor) (*model.Configuration, bool, error) {
	span := trace.Begin(s.tracerFor(ctx), trace.ScopeService, "load", 0)
	defer span.End("")

	m := s.Model()
	var existing *model.Configuration
	if desc.ID != "" {
		existing = m.Configuration(desc.ID)
	}
	if existing == nil && desc.Name != "" {
		existing = m.ConfigurationByName(desc.Name)
	}
	if existing != nil {
		if hasOptions(desc.Options) {
			existing.Options = desc.Options
		}
		span.WithExtra("attached", existing.ID)
		return existing, false, nil
	}
	if model.NormalizeName(desc.Name) == "" {
		return nil, false, errors.New("configuration name is required")
	}
	c := model.NewConfiguration(desc.ID, model.NormalizeName(desc.Name))
	c.Options = desc.Options
	m.Add(c)
	span.WithExtra("created", c.ID)
	return c, true, nil
}

func hasOptions(o model.Options) bool {
	return len(o.Input) > 0 || len(o.Target) > 0 || len(o.Source) > 0 || o.Output != ""
}

// Delete removes a configuration.
func (s *Service) Delete(configID string) error {
	return s.Model().Remove(configID)
}

// MarkComplete marks a hint complete in its configuration.
func (s *Service) MarkComplete(configID, hintID string) error {
	c := s.Model().Configuration(configID)
	if c == nil {
		return fmt.Errorf("%w %q", model.ErrUnknownConfiguration, configID)
	}
	return c.SetComplete(hintID)
}

// ApplyResults installs analysis output into a configuration.
func (s *Service) ApplyResults(configID string, summary model.Summary, hints []*model.Hint) error {
	c := s.Model().Configuration(configID)
	if c == nil {
		return fmt.Errorf("%w %q", model.ErrUnknownConfiguration, configID)
	}
	c.ApplyResults(summary, hints)
	return nil
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
