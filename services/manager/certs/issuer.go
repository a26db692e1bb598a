// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package certs issues and validates the self-signed PKI backing the
// broker's TLS listener: one local CA and one server certificate
// signed by it, all as PEM files under the data directory.
package certs

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"

	"github.com/AleutianAI/AleutianMQTT/pkg/logging"
	"github.com/AleutianAI/AleutianMQTT/services/manager/compiler"
	"github.com/AleutianAI/AleutianMQTT/services/manager/config"
)

const (
	rsaKeyBits     = 2048
	caValidYears   = 10
	certValidYears = 5
)

// Issuer creates and checks the broker's certificate material.
type Issuer struct {
	paths  config.Paths
	logger *logging.Logger

	// now is stubbed in expiry tests.
	now func() time.Time
}

// NewIssuer creates an issuer over the given data layout.
func NewIssuer(paths config.Paths, logger *logging.Logger) *Issuer {
	return &Issuer{paths: paths, logger: logger, now: time.Now}
}

// EnsureCertificates makes sure a CA and a server certificate exist,
// generating both when either is missing. Existing files are left
// untouched even if expired; rotation is an explicit operation, not a
// startup side effect that would invalidate deployed client CAs.
//
// The server certificate covers localhost, 127.0.0.1, and the broker's
// configured bind address.
func (i *Issuer) EnsureCertificates(bindAddress string) error {
	if fileExists(i.paths.CACertFile()) && fileExists(i.paths.ServerCertFile()) {
		i.logger.Debug("certificates present, skipping generation")
		return nil
	}

	if err := os.MkdirAll(i.paths.CertsDir(), 0700); err != nil {
		return fmt.Errorf("create certs dir: %w", err)
	}

	caCert, caKey, err := i.generateCA()
	if err != nil {
		return fmt.Errorf("generate ca: %w", err)
	}
	if err := i.generateServer(caCert, caKey, bindAddress); err != nil {
		return fmt.Errorf("generate server cert: %w", err)
	}
	i.logger.Info("certificates generated", "dir", i.paths.CertsDir())
	return nil
}

// ValidateCertificates reports whether the CA and server certificates
// parse and are inside their validity windows, and whether both private
// keys parse. A bundle whose key is corrupt would pass a cert-only
// check and still be unloadable by the broker. Failure reasons are
// logged at debug; callers only branch on the boolean.
func (i *Issuer) ValidateCertificates() bool {
	ok := true
	for name, path := range map[string]string{
		"ca":     i.paths.CACertFile(),
		"server": i.paths.ServerCertFile(),
	} {
		cert, err := readCertificate(path)
		if err != nil {
			i.logger.Debug("certificate invalid", "cert", name, "error", err)
			ok = false
			continue
		}
		now := i.now()
		if now.Before(cert.NotBefore) {
			i.logger.Debug("certificate not yet valid", "cert", name, "not_before", cert.NotBefore)
			ok = false
		}
		if now.After(cert.NotAfter) {
			i.logger.Debug("certificate expired", "cert", name, "not_after", cert.NotAfter)
			ok = false
		}
	}
	for name, path := range map[string]string{
		"ca":     i.paths.CAKeyFile(),
		"server": i.paths.ServerKeyFile(),
	} {
		if _, err := readPrivateKey(path); err != nil {
			i.logger.Debug("private key invalid", "key", name, "error", err)
			ok = false
		}
	}
	return ok
}

// RegenerateCertificates removes the existing material and issues a
// fresh CA and server certificate.
func (i *Issuer) RegenerateCertificates(bindAddress string) error {
	for _, path := range []string{
		i.paths.CAKeyFile(), i.paths.CACertFile(),
		i.paths.ServerKeyFile(), i.paths.ServerCertFile(),
	} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return i.EnsureCertificates(bindAddress)
}

// -----------------------------------------------------------------------------
// Generation
// -----------------------------------------------------------------------------

func (i *Issuer) generateCA() (*x509.Certificate, *rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, nil, err
	}
	serial, err := randomSerial()
	if err != nil {
		return nil, nil, err
	}

	now := i.now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "AleutianMQTT Local CA",
			Organization: []string{"Aleutian AI"},
		},
		NotBefore:             now,
		NotAfter:              now.AddDate(caValidYears, 0, 0),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage: x509.KeyUsageCertSign |
			x509.KeyUsageDigitalSignature |
			x509.KeyUsageKeyEncipherment,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}
	if err := i.writePair(i.paths.CACertFile(), der, i.paths.CAKeyFile(), key); err != nil {
		return nil, nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, err
	}
	return cert, key, nil
}

func (i *Issuer) generateServer(caCert *x509.Certificate, caKey *rsa.PrivateKey, bindAddress string) error {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return err
	}
	serial, err := randomSerial()
	if err != nil {
		return err
	}

	dnsNames := []string{"localhost"}
	ipAddresses := []net.IP{net.ParseIP("127.0.0.1")}
	if bindAddress != "" {
		if ip := net.ParseIP(bindAddress); ip != nil {
			if !ip.Equal(ipAddresses[0]) {
				ipAddresses = append(ipAddresses, ip)
			}
		} else {
			dnsNames = append(dnsNames, bindAddress)
		}
	}

	now := i.now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "AleutianMQTT Broker",
			Organization: []string{"Aleutian AI"},
		},
		NotBefore:   now,
		NotAfter:    now.AddDate(certValidYears, 0, 0),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:    dnsNames,
		IPAddresses: ipAddresses,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, caCert, &key.PublicKey, caKey)
	if err != nil {
		return err
	}
	return i.writePair(i.paths.ServerCertFile(), der, i.paths.ServerKeyFile(), key)
}

// writePair writes a certificate and its private key. Certificates are
// world-readable so clients can copy the CA; keys are owner-only.
func (i *Issuer) writePair(certPath string, der []byte, keyPath string, key *rsa.PrivateKey) error {
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := compiler.WriteFileAtomic(certPath, certPEM, 0644); err != nil {
		return fmt.Errorf("write %s: %w", certPath, err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	if err := compiler.WriteFileAtomic(keyPath, keyPEM, 0600); err != nil {
		return fmt.Errorf("write %s: %w", keyPath, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	return rand.Int(rand.Reader, limit)
}

func readCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%s: no certificate PEM block", path)
	}
	return x509.ParseCertificate(block.Bytes)
}

func readPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "RSA PRIVATE KEY" {
		return nil, fmt.Errorf("%s: no private key PEM block", path)
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
