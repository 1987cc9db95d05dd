// Copyright (c) 2017-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"
)

// NewTLSConfig returns a client TLS config. The certificate at certPath is
// trusted in addition to the system roots when it is provided.
func NewTLSConfig(skipVerify bool, certPath string) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: skipVerify,
	}
	if skipVerify || certPath == "" {
		return tlsConfig, nil
	}
	cert, err := os.ReadFile(certPath)
	if err != nil {
		return nil, err
	}
	certPool, err := x509.SystemCertPool()
	if err != nil {
		certPool = x509.NewCertPool()
	}
	if !certPool.AppendCertsFromPEM(cert) {
		return nil, fmt.Errorf("unable to load cert %v", certPath)
	}
	tlsConfig.RootCAs = certPool
	return tlsConfig, nil
}

// NewHTTPClient returns a new http Client that uses NewTLSConfig.
func NewHTTPClient(skipVerify bool, certPath string) (*http.Client, error) {
	tlsConfig, err := NewTLSConfig(skipVerify, certPath)
	if err != nil {
		return nil, err
	}

	return &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &http.Transport{
			IdleConnTimeout:       2 * time.Minute,
			ResponseHeaderTimeout: 2 * time.Minute,
			TLSClientConfig:       tlsConfig,
		},
	}, nil
}
