// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianMQTT/services/manager/datatypes"
)

// =============================================================================
// Bridge Operations
// =============================================================================

// Bridges returns a copy of the bridge definitions in stored order.
func (s *Store) Bridges() []datatypes.BridgeDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]datatypes.BridgeDefinition, len(s.bridges))
	copy(out, s.bridges)
	return out
}

// Bridge returns the definition with the given id.
func (s *Store) Bridge(id string) (datatypes.BridgeDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.findBridge(id)
	if idx < 0 {
		return datatypes.BridgeDefinition{}, fmt.Errorf("bridge %q: %w", id, datatypes.ErrNotFound)
	}
	return s.bridges[idx], nil
}

// AddBridge validates and stores a new bridge definition. A missing id
// is filled with a fresh UUID; a caller-supplied id must be unique.
func (s *Store) AddBridge(def datatypes.BridgeDefinition) (datatypes.BridgeDefinition, error) {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	if err := datatypes.ValidateBridge(def); err != nil {
		return datatypes.BridgeDefinition{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findBridge(def.ID) >= 0 {
		return datatypes.BridgeDefinition{}, fmt.Errorf("bridge %q: %w", def.ID, datatypes.ErrConflict)
	}
	s.bridges = append(s.bridges, def)
	if err := s.persistBridges(); err != nil {
		s.bridges = s.bridges[:len(s.bridges)-1]
		return datatypes.BridgeDefinition{}, err
	}
	s.logger.Info("bridge added", "id", def.ID, "name", def.Name)
	return def, nil
}

// UpdateBridge replaces the definition with the given id. The id in
// the body is ignored; bridges are not renamed through update.
func (s *Store) UpdateBridge(id string, def datatypes.BridgeDefinition) (datatypes.BridgeDefinition, error) {
	def.ID = id
	if err := datatypes.ValidateBridge(def); err != nil {
		return datatypes.BridgeDefinition{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findBridge(id)
	if idx < 0 {
		return datatypes.BridgeDefinition{}, fmt.Errorf("bridge %q: %w", id, datatypes.ErrNotFound)
	}
	prev := s.bridges[idx]
	s.bridges[idx] = def
	if err := s.persistBridges(); err != nil {
		s.bridges[idx] = prev
		return datatypes.BridgeDefinition{}, err
	}
	s.logger.Info("bridge updated", "id", id, "name", def.Name)
	return def, nil
}

// RemoveBridge deletes the bridge definition.
func (s *Store) RemoveBridge(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findBridge(id)
	if idx < 0 {
		return fmt.Errorf("bridge %q: %w", id, datatypes.ErrNotFound)
	}
	removed := s.bridges[idx]
	s.bridges = append(s.bridges[:idx], s.bridges[idx+1:]...)
	if err := s.persistBridges(); err != nil {
		s.bridges = append(s.bridges[:idx], append([]datatypes.BridgeDefinition{removed}, s.bridges[idx:]...)...)
		return err
	}
	s.logger.Info("bridge removed", "id", id)
	return nil
}

// SetBridgeEnabled toggles whether the bridge is rendered into the
// broker configuration.
func (s *Store) SetBridgeEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findBridge(id)
	if idx < 0 {
		return fmt.Errorf("bridge %q: %w", id, datatypes.ErrNotFound)
	}
	prev := s.bridges[idx].Enabled
	s.bridges[idx].Enabled = enabled
	if err := s.persistBridges(); err != nil {
		s.bridges[idx].Enabled = prev
		return err
	}
	s.logger.Info("bridge toggled", "id", id, "enabled", enabled)
	return nil
}

// DuplicateBridge copies an existing bridge under a fresh id with a
// "(Copy)" name suffix. The copy is always created disabled; a cloned
// bridge never starts forwarding traffic until explicitly enabled.
func (s *Store) DuplicateBridge(id string) (datatypes.BridgeDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findBridge(id)
	if idx < 0 {
		return datatypes.BridgeDefinition{}, fmt.Errorf("bridge %q: %w", id, datatypes.ErrNotFound)
	}
	dup := s.bridges[idx]
	dup.ID = uuid.NewString()
	dup.Name = dup.Name + " (Copy)"
	dup.Enabled = false
	dup.Topics = append([]datatypes.TopicRoute(nil), s.bridges[idx].Topics...)

	s.bridges = append(s.bridges, dup)
	if err := s.persistBridges(); err != nil {
		s.bridges = s.bridges[:len(s.bridges)-1]
		return datatypes.BridgeDefinition{}, err
	}
	s.logger.Info("bridge duplicated", "source", id, "id", dup.ID)
	return dup, nil
}

// findBridge returns the index of the bridge or -1. Caller holds s.mu.
func (s *Store) findBridge(id string) int {
	for i := range s.bridges {
		if s.bridges[i].ID == id {
			return i
		}
	}
	return -1
}

// persistBridges saves the bridge records and recompiles the broker
// configuration, where bridge connections live. Caller holds s.mu.
func (s *Store) persistBridges() error {
	if err := s.saveJSON(s.paths.BridgesFile(), s.bridges); err != nil {
		return fmt.Errorf("persist bridges: %w", err)
	}
	return s.compileConf()
}
