// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianMQTT/services/manager/store"
)

// userView is the API shape of a user record. The hash never leaves
// the store through this surface.
type userView struct {
	Username string `json:"username"`
	Enabled  bool   `json:"enabled"`
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Enabled  bool   `json:"enabled"`
}

type updateUserRequest struct {
	Enabled bool `json:"enabled"`
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

func ListUsers(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		records := s.Users()
		out := make([]userView, len(records))
		for i, r := range records {
			out[i] = userView{Username: r.Username, Enabled: r.Enabled}
		}
		c.JSON(http.StatusOK, gin.H{"users": out})
	}
}

func CreateUser(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createUserRequest
		if !bindJSON(c, &req) {
			return
		}
		record, err := s.AddUser(req.Username, req.Password, req.Enabled)
		if err != nil {
			respondError(c, err)
			return
		}
		slog.Info("user created", "username", record.Username)
		c.JSON(http.StatusCreated, userView{Username: record.Username, Enabled: record.Enabled})
	}
}

func UpdateUser(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateUserRequest
		if !bindJSON(c, &req) {
			return
		}
		username := c.Param("username")
		if err := s.UpdateUser(username, req.Enabled); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, userView{Username: username, Enabled: req.Enabled})
	}
}

func DeleteUser(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.RemoveUser(c.Param("username")); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func ChangePassword(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := s.ChangePassword(c.Param("username"), req.Password); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "password changed"})
	}
}
