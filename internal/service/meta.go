package service

import (
	"context"
	"strings"

	"github.com/BurntSushi/toml"

	"surveyor/internal/trace"
)

// UnknownVersion is reported when the analyzer metadata cannot be read.
const UnknownVersion = "unknown"

// CliMeta describes the analyzer CLI installation.
type CliMeta struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Home    string `toml:"home"`
	// Source is the file the metadata came from; empty when degraded.
	Source string `toml:"-"`
}

// Known reports whether real metadata was read.
func (m CliMeta) Known() bool {
	return m.Version != UnknownVersion
}

func unknownMeta() CliMeta {
	return CliMeta{Name: "analyzer", Version: UnknownVersion}
}

// ReadCliMeta reads the analyzer metadata file once. It never fails: a missing
// or malformed file degrades to UnknownVersion and is only logged.
func (s *Service) ReadCliMeta(ctx context.Context) CliMeta {
	span := trace.Begin(s.tracerFor(ctx), trace.ScopeService, "read-cli-meta", 0)
	meta := s.readCliMeta()
	span.WithExtra("version", meta.Version).End("")

	s.mu.Lock()
	s.meta = meta
	s.mu.Unlock()
	return meta
}

func (s *Service) readCliMeta() CliMeta {
	if s.metaPath == "" {
		s.log.Debug("no analyzer metadata configured")
		return unknownMeta()
	}
	var meta CliMeta
	if _, err := toml.DecodeFile(s.metaPath, &meta); err != nil {
		s.log.Warn("analyzer metadata unavailable", "path", s.metaPath, "err", err)
		return unknownMeta()
	}
	meta.Version = strings.TrimSpace(meta.Version)
	if meta.Version == "" {
		s.log.Warn("analyzer metadata has no version", "path", s.metaPath)
		meta.Version = UnknownVersion
	}
	if meta.Name == "" {
		meta.Name = "analyzer"
	}
	meta.Source = s.metaPath
	return meta
}

// Meta returns the metadata read by ReadCliMeta (UnknownVersion before that).
func (s *Service) Meta() CliMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}
