// Package filestore persists the tracking document as a single JSON file.
//
// Saves are whole-document and atomic: the new content is written to a temp
// file in the same directory and renamed over the old one, so a concurrent
// load never observes a partial write. A corrupt or unreadable file is
// recovered as an empty document; availability wins over keeping a malformed
// write.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ozwatch/ozwatch/internal/track"
)

// Config captures the parameters for the file store.
type Config struct {
	// Path is the JSON document location.
	Path string `mapstructure:"path"`
	// LegacyOwner is the owner key that records from the pre-versioned flat
	// layout are migrated under.
	LegacyOwner string `mapstructure:"legacy_owner"`
}

// Store implements track.Store on the local filesystem.
type Store struct {
	cfg    Config
	logger *zap.Logger
	mu     sync.Mutex
}

// New validates the target path and returns a Store.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("store path is required")
	}
	if cfg.LegacyOwner == "" {
		cfg.LegacyOwner = "default"
	}
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{cfg: cfg, logger: logger}, nil
}

// Load reads the whole document, detecting the persisted schema by
// structural inspection and upgrading the oldest supported shape before
// returning.
func (s *Store) Load(_ context.Context) (track.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return track.NewDocument(), nil
		}
		s.logger.Warn("store unreadable, starting empty", zap.String("path", s.cfg.Path), zap.Error(err))
		return track.NewDocument(), nil
	}
	return s.decode(raw), nil
}

// Save writes the whole document atomically.
func (s *Store) Save(_ context.Context, doc track.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.SchemaVersion = track.SchemaVersion
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.cfg.Path), filepath.Base(s.cfg.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.cfg.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

func (s *Store) decode(raw []byte) track.Document {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		s.logger.Warn("store corrupt, starting empty", zap.String("path", s.cfg.Path), zap.Error(err))
		return track.NewDocument()
	}

	_, versioned := probe["schema_version"]
	_, hasTracks := probe["tracks"]
	if versioned || hasTracks {
		var doc track.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			s.logger.Warn("store corrupt, starting empty", zap.String("path", s.cfg.Path), zap.Error(err))
			return track.NewDocument()
		}
		if doc.Tracks == nil {
			doc.Tracks = make(map[string]map[string]track.TrackingRecord)
		}
		doc.SchemaVersion = track.SchemaVersion
		return doc
	}

	// Oldest supported shape: a flat tracking-number keyed map with no owner
	// dimension and no metadata.
	var flat map[string]track.TrackingRecord
	if err := json.Unmarshal(raw, &flat); err != nil {
		s.logger.Warn("store corrupt, starting empty", zap.String("path", s.cfg.Path), zap.Error(err))
		return track.NewDocument()
	}
	s.logger.Info("upgrading legacy store layout",
		zap.String("path", s.cfg.Path),
		zap.String("owner", s.cfg.LegacyOwner),
		zap.Int("records", len(flat)))
	return upgradeLegacy(flat, s.cfg.LegacyOwner)
}

// upgradeLegacy is the pure transformation from the flat layout to the
// owner-keyed current shape.
func upgradeLegacy(flat map[string]track.TrackingRecord, owner string) track.Document {
	doc := track.NewDocument()
	if len(flat) == 0 {
		return doc
	}
	tracks := doc.Owner(owner)
	for number, rec := range flat {
		tracks[number] = rec
	}
	return doc
}
