// Package store persists the imported calendars and the review decisions
// applied to them. The persisted state is a single versioned JSON blob; the
// backends (file, bolt, redis) only move bytes.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	appLog "calstats/internal/log"
)

// Version is the schema version written by Encode.
const Version = 1

var ErrUnknownBackend = errors.New("store: unknown backend")

// SourceRecord is one imported calendar kept verbatim so the event set can
// be rebuilt by re-parsing.
type SourceRecord struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	RawText     string    `json:"raw_text"`
	ImportedAt  time.Time `json:"imported_at"`
}

// State is the whole persisted document.
type State struct {
	Version         int               `json:"version"`
	Sources         []SourceRecord    `json:"sources"`
	TitleMappings   map[string]string `json:"title_mappings"`
	RemovedEventIDs []string          `json:"removed_event_ids"`
}

// Empty returns the state of a fresh installation.
func Empty() State {
	return State{
		Version:         Version,
		Sources:         []SourceRecord{},
		TitleMappings:   map[string]string{},
		RemovedEventIDs: []string{},
	}
}

// Decode parses a persisted blob. It never fails: an empty blob, malformed
// JSON, an unsupported version or an invalid source record all yield
// Empty() and a log line. A blob without a version field is read as
// version 1.
func Decode(data []byte) State {
	if len(bytes.TrimSpace(data)) == 0 {
		return Empty()
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		appLog.Error("store: could not load saved calendars, starting empty", err)
		return Empty()
	}
	if err := st.validate(); err != nil {
		appLog.Error("store: persisted state rejected, starting empty", err, "version", st.Version)
		return Empty()
	}

	st.Version = Version
	if st.Sources == nil {
		st.Sources = []SourceRecord{}
	}
	if st.TitleMappings == nil {
		st.TitleMappings = map[string]string{}
	}
	if st.RemovedEventIDs == nil {
		st.RemovedEventIDs = []string{}
	}
	return st
}

func (s State) validate() error {
	if s.Version != 0 && s.Version != Version {
		return fmt.Errorf("unsupported version %d", s.Version)
	}
	seen := make(map[string]struct{}, len(s.Sources))
	for i, src := range s.Sources {
		if src.ID == "" {
			return fmt.Errorf("source %d has no id", i)
		}
		if _, dup := seen[src.ID]; dup {
			return fmt.Errorf("source id %q appears twice", src.ID)
		}
		seen[src.ID] = struct{}{}
	}
	return nil
}

// Encode serialises the state with the current version.
func Encode(s State) ([]byte, error) {
	s.Version = Version
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// Merge returns a copy of s with sources appended, mappings overlaid (new
// entries win) and removed ids appended without duplicates. Sources whose
// id is already present replace the stored record.
func (s State) Merge(sources []SourceRecord, mappings map[string]string, removed []string) State {
	out := State{
		Version:         Version,
		Sources:         make([]SourceRecord, 0, len(s.Sources)+len(sources)),
		TitleMappings:   make(map[string]string, len(s.TitleMappings)+len(mappings)),
		RemovedEventIDs: make([]string, 0, len(s.RemovedEventIDs)+len(removed)),
	}

	index := make(map[string]int, len(s.Sources)+len(sources))
	for _, src := range append(append([]SourceRecord(nil), s.Sources...), sources...) {
		if i, ok := index[src.ID]; ok {
			out.Sources[i] = src
			continue
		}
		index[src.ID] = len(out.Sources)
		out.Sources = append(out.Sources, src)
	}

	for k, v := range s.TitleMappings {
		out.TitleMappings[k] = v
	}
	for k, v := range mappings {
		out.TitleMappings[k] = v
	}

	seen := make(map[string]struct{}, cap(out.RemovedEventIDs))
	for _, id := range append(append([]string(nil), s.RemovedEventIDs...), removed...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out.RemovedEventIDs = append(out.RemovedEventIDs, id)
	}
	return out
}

// RemovedSet returns the removed ids as a lookup set.
func (s State) RemovedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.RemovedEventIDs))
	for _, id := range s.RemovedEventIDs {
		set[id] = struct{}{}
	}
	return set
}
