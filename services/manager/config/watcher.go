// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/AleutianMQTT/pkg/logging"
)

// ArtifactWatcher watches the data directory for changes to compiled
// broker artifacts.
//
// The compiled files are manager-owned; the ACL and config headers warn
// against manual edits, but nothing stops an operator's editor. The
// watcher surfaces such out-of-band writes in the log so drift between
// the JSON records and the compiled artifacts is visible. The manager's
// own temp-and-rename writes also appear here, at debug level.
type ArtifactWatcher struct {
	paths    Paths
	logger   *logging.Logger
	watcher  *fsnotify.Watcher
	OnChange func(path string)
}

// NewArtifactWatcher creates a watcher for the given data layout.
func NewArtifactWatcher(paths Paths, logger *logging.Logger) (*ArtifactWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.Add(paths.DataDir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", paths.DataDir, err)
	}
	return &ArtifactWatcher{paths: paths, logger: logger, watcher: w}, nil
}

// Run processes events until the context is cancelled. Intended to run
// as a goroutine under the daemon's errgroup.
func (a *ArtifactWatcher) Run(ctx context.Context) error {
	defer a.watcher.Close()

	watched := map[string]bool{
		a.paths.PasswdFile():     true,
		a.paths.ACLFile():        true,
		a.paths.BrokerConfFile(): true,
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-a.watcher.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if !watched[path] {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
				a.logger.Debug("compiled artifact changed on disk",
					"path", path, "op", event.Op.String())
				if a.OnChange != nil {
					a.OnChange(path)
				}
			}
			if event.Op.Has(fsnotify.Remove) {
				a.logger.Warn("compiled artifact removed from disk",
					"path", path)
			}
		case err, ok := <-a.watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("artifact watcher error", "error", err)
		}
	}
}
