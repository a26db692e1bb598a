// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianMQTT/services/manager/bridge"
	"github.com/AleutianAI/AleutianMQTT/services/manager/datatypes"
	"github.com/AleutianAI/AleutianMQTT/services/manager/store"
)

func ListBridges(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"bridges": s.Bridges()})
	}
}

func GetBridge(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		def, err := s.Bridge(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, def)
	}
}

func CreateBridge(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var def datatypes.BridgeDefinition
		if !bindJSON(c, &def) {
			return
		}
		created, err := s.AddBridge(def)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func UpdateBridge(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var def datatypes.BridgeDefinition
		if !bindJSON(c, &def) {
			return
		}
		updated, err := s.UpdateBridge(c.Param("id"), def)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func DeleteBridge(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.RemoveBridge(c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func EnableBridge(s *store.Store) gin.HandlerFunc {
	return setBridgeEnabled(s, true)
}

func DisableBridge(s *store.Store) gin.HandlerFunc {
	return setBridgeEnabled(s, false)
}

func setBridgeEnabled(s *store.Store, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := s.SetBridgeEnabled(id, enabled); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "enabled": enabled})
	}
}

func DuplicateBridge(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		dup, err := s.DuplicateBridge(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, dup)
	}
}

// TestBridge probes the remote endpoint of a stored bridge. The
// verdict is a plain boolean; connect failure is an expected outcome
// of a test, not an error status.
func TestBridge(s *store.Store, tester *bridge.Tester) gin.HandlerFunc {
	return func(c *gin.Context) {
		def, err := s.Bridge(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		reachable := tester.TestConnection(c.Request.Context(), def)
		c.JSON(http.StatusOK, gin.H{"id": def.ID, "reachable": reachable})
	}
}
