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

	"github.com/AleutianAI/AleutianMQTT/services/manager/datatypes"
	"github.com/AleutianAI/AleutianMQTT/services/manager/store"
)

func ListRules(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rules": s.Rules()})
	}
}

func CreateRule(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rule datatypes.AccessRule
		if !bindJSON(c, &rule) {
			return
		}
		created, err := s.AddRule(rule)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// DeleteRule removes by the identity tuple in the body; rules have no
// server-assigned id to put in the path.
func DeleteRule(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rule datatypes.AccessRule
		if !bindJSON(c, &rule) {
			return
		}
		if err := s.RemoveRule(rule); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
