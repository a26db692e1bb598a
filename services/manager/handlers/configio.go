// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianMQTT/services/manager/store"
)

// ExportConfig returns the full record set with secrets redacted.
func ExportConfig(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.ExportConfig())
	}
}

// ImportConfig merges a previously exported bundle. The overwrite
// query parameter controls whether existing entries are replaced;
// the response carries per-entity imported/skipped counts.
func ImportConfig(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var bundle store.ConfigBundle
		if !bindJSON(c, &bundle) {
			return
		}
		overwrite, _ := strconv.ParseBool(c.DefaultQuery("overwrite", "false"))
		result, err := s.ImportConfig(bundle, overwrite)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
