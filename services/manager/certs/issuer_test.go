// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package certs

import (
	"crypto/x509"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMQTT/pkg/logging"
	"github.com/AleutianAI/AleutianMQTT/services/manager/config"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	logger := logging.New(logging.Config{Quiet: true})
	t.Cleanup(func() { logger.Close() })
	return NewIssuer(config.Paths{DataDir: t.TempDir()}, logger)
}

func TestEnsureCertificates_GeneratesChain(t *testing.T) {
	issuer := newTestIssuer(t)
	require.NoError(t, issuer.EnsureCertificates("192.168.1.50"))

	caCert, err := readCertificate(issuer.paths.CACertFile())
	require.NoError(t, err)
	assert.True(t, caCert.IsCA)
	assert.Equal(t, "AleutianMQTT Local CA", caCert.Subject.CommonName)
	assert.NotZero(t, caCert.KeyUsage&x509.KeyUsageCertSign)

	serverCert, err := readCertificate(issuer.paths.ServerCertFile())
	require.NoError(t, err)
	assert.False(t, serverCert.IsCA)
	assert.Contains(t, serverCert.DNSNames, "localhost")

	ips := make([]string, 0, len(serverCert.IPAddresses))
	for _, ip := range serverCert.IPAddresses {
		ips = append(ips, ip.String())
	}
	assert.Contains(t, ips, "127.0.0.1")
	assert.Contains(t, ips, "192.168.1.50")

	// Server cert must verify against the generated CA.
	pool := x509.NewCertPool()
	pool.AddCert(caCert)
	_, err = serverCert.Verify(x509.VerifyOptions{Roots: pool})
	assert.NoError(t, err)
}

func TestEnsureCertificates_KeyPermissions(t *testing.T) {
	issuer := newTestIssuer(t)
	require.NoError(t, issuer.EnsureCertificates(""))

	for _, path := range []string{issuer.paths.CAKeyFile(), issuer.paths.ServerKeyFile()} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), path)
	}
}

func TestEnsureCertificates_Idempotent(t *testing.T) {
	issuer := newTestIssuer(t)
	require.NoError(t, issuer.EnsureCertificates(""))

	before, err := os.ReadFile(issuer.paths.ServerCertFile())
	require.NoError(t, err)

	require.NoError(t, issuer.EnsureCertificates(""))
	after, err := os.ReadFile(issuer.paths.ServerCertFile())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestValidateCertificates(t *testing.T) {
	issuer := newTestIssuer(t)

	// Nothing on disk yet.
	assert.False(t, issuer.ValidateCertificates())

	require.NoError(t, issuer.EnsureCertificates(""))
	assert.True(t, issuer.ValidateCertificates())

	// Past the server cert's five-year lifetime.
	issuer.now = func() time.Time { return time.Now().AddDate(6, 0, 0) }
	assert.False(t, issuer.ValidateCertificates())
}

func TestValidateCertificates_CorruptFile(t *testing.T) {
	issuer := newTestIssuer(t)
	require.NoError(t, issuer.EnsureCertificates(""))

	require.NoError(t, os.WriteFile(issuer.paths.ServerCertFile(), []byte("not a cert"), 0644))
	assert.False(t, issuer.ValidateCertificates())
}

func TestValidateCertificates_CorruptKey(t *testing.T) {
	issuer := newTestIssuer(t)
	require.NoError(t, issuer.EnsureCertificates(""))

	require.NoError(t, os.WriteFile(issuer.paths.ServerKeyFile(), []byte("not a key"), 0600))
	assert.False(t, issuer.ValidateCertificates(),
		"a bundle with an unparseable server key is unloadable by the broker")
}

func TestValidateCertificates_MissingCAKey(t *testing.T) {
	issuer := newTestIssuer(t)
	require.NoError(t, issuer.EnsureCertificates(""))

	require.NoError(t, os.Remove(issuer.paths.CAKeyFile()))
	assert.False(t, issuer.ValidateCertificates())
}

func TestRegenerateCertificates_ReplacesChain(t *testing.T) {
	issuer := newTestIssuer(t)
	require.NoError(t, issuer.EnsureCertificates(""))

	before, err := os.ReadFile(issuer.paths.CACertFile())
	require.NoError(t, err)

	require.NoError(t, issuer.RegenerateCertificates(""))
	after, err := os.ReadFile(issuer.paths.CACertFile())
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.True(t, issuer.ValidateCertificates())
}
