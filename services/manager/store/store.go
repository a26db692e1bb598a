// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store holds the manager's source of truth: user, ACL rule,
// and bridge records persisted as JSON in the data directory. Every
// mutation persists the changed record set and recompiles the broker
// artifacts that depend on it, so the compiled files never drift from
// the records while the manager is the only writer.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/AleutianAI/AleutianMQTT/pkg/logging"
	"github.com/AleutianAI/AleutianMQTT/services/manager/compiler"
	"github.com/AleutianAI/AleutianMQTT/services/manager/config"
	"github.com/AleutianAI/AleutianMQTT/services/manager/datatypes"
)

// Store is the serialized entity store. A single mutex covers all three
// record sets because every mutation also recompiles artifacts; finer
// locking would allow a reader to observe records newer than the
// compiled files.
type Store struct {
	mu     sync.Mutex
	paths  config.Paths
	broker config.BrokerConfig
	logger *logging.Logger

	users   []datatypes.UserRecord
	rules   []datatypes.AccessRule
	bridges []datatypes.BridgeDefinition
}

// New creates a store over the given data layout. Call Load before use.
func New(paths config.Paths, broker config.BrokerConfig, logger *logging.Logger) *Store {
	return &Store{paths: paths, broker: broker, logger: logger}
}

// Load reads the persisted record files. Missing files are treated as
// empty sets; a fresh data directory is a valid starting state.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := loadJSON(s.paths.UsersFile(), &s.users); err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	if err := loadJSON(s.paths.ACLsFile(), &s.rules); err != nil {
		return fmt.Errorf("load acl rules: %w", err)
	}
	if err := loadJSON(s.paths.BridgesFile(), &s.bridges); err != nil {
		return fmt.Errorf("load bridges: %w", err)
	}
	s.logger.Info("store loaded",
		"users", len(s.users), "rules", len(s.rules), "bridges", len(s.bridges))
	return nil
}

// CompileAll renders every broker artifact from the current records.
// Called once at startup so the broker always launches against files
// that match the records, even after an out-of-band edit.
func (s *Store) CompileAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.compileAuth(); err != nil {
		return err
	}
	return s.compileConf()
}

func loadJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (s *Store) saveJSON(path string, in any) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return err
	}
	return compiler.WriteFileAtomic(path, append(data, '\n'), 0600)
}

// -----------------------------------------------------------------------------
// Artifact compilation
// -----------------------------------------------------------------------------

// compileAuth renders the passwd and acl files. Caller holds s.mu.
func (s *Store) compileAuth() error {
	passwd := compiler.RenderPasswd(s.users)
	if err := compiler.WriteFileAtomic(s.paths.PasswdFile(), []byte(passwd), 0600); err != nil {
		return fmt.Errorf("write passwd: %w", err)
	}
	acl := compiler.RenderACL(s.rules)
	if err := compiler.WriteFileAtomic(s.paths.ACLFile(), []byte(acl), 0644); err != nil {
		return fmt.Errorf("write acl: %w", err)
	}
	s.logger.Debug("auth artifacts compiled",
		"users", len(s.users), "rules", len(s.rules))
	return nil
}

// compileConf renders the broker configuration file. Caller holds s.mu.
func (s *Store) compileConf() error {
	params := compiler.ConfParams{
		Port:           s.broker.Port,
		BindAddress:    s.broker.BindAddress,
		AllowAnonymous: s.broker.AllowAnonymous,
		PersistenceDir: s.broker.PersistenceDir,
		PasswdFile:     s.paths.PasswdFile(),
		ACLFile:        s.paths.ACLFile(),
	}
	if s.broker.TLS.Enabled {
		params.TLSEnabled = true
		params.TLSPort = s.broker.TLS.Port
		params.TLSCAFile = s.paths.CACertFile()
		params.TLSCertFile = s.paths.ServerCertFile()
		params.TLSKeyFile = s.paths.ServerKeyFile()
	}
	conf := compiler.RenderBrokerConf(params, s.bridges)
	if err := compiler.WriteFileAtomic(s.paths.BrokerConfFile(), []byte(conf), 0644); err != nil {
		return fmt.Errorf("write broker conf: %w", err)
	}
	s.logger.Debug("broker conf compiled", "bridges", len(s.bridges))
	return nil
}
