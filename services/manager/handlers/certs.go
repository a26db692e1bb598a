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

	"github.com/AleutianAI/AleutianMQTT/services/manager/certs"
)

// GetCertStatus reports whether the TLS material is present and valid.
func GetCertStatus(issuer *certs.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"valid": issuer.ValidateCertificates()})
	}
}

// RegenerateCerts replaces the CA and server certificate. Existing
// clients pinning the old CA must re-fetch it afterwards.
func RegenerateCerts(issuer *certs.Issuer, bindAddress string) gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Info("operator requested certificate regeneration")
		if err := issuer.RegenerateCertificates(bindAddress); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"valid": issuer.ValidateCertificates()})
	}
}
