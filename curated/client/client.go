// Copyright (c) 2020-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package client provides a client for the curated API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/decred/curate/util"
)

// Client provides a client for interacting with the curated API.
type Client struct {
	rpcHost string
	rpcUser string
	rpcPass string
	http    *http.Client
}

// ErrorReply represents the request body that is returned from curated when
// an error occurs. User errors carry a v1 error code. Server errors carry the
// timestamp that the error was logged under.
type ErrorReply struct {
	ErrorCode    int64  `json:"errorcode"`
	ErrorContext string `json:"errorcontext"`
}

// RespError represents a curated response error. A RespError is returned
// anytime the curated response is not a 200.
type RespError struct {
	HTTPCode   int
	ErrorReply ErrorReply
}

// Error satisfies the error interface.
func (e RespError) Error() string {
	if e.IsUserError() {
		code := v1.ErrorCodeT(e.ErrorReply.ErrorCode)
		if e.ErrorReply.ErrorContext != "" {
			return fmt.Sprintf("curated error: %v %v: %v", e.HTTPCode,
				v1.ErrorCodes[code], e.ErrorReply.ErrorContext)
		}
		return fmt.Sprintf("curated error: %v %v", e.HTTPCode,
			v1.ErrorCodes[code])
	}
	return fmt.Sprintf("curated error: %v %v",
		e.HTTPCode, e.ErrorReply.ErrorCode)
}

// IsUserError returns whether the error was caused by the request.
func (e RespError) IsUserError() bool {
	return e.HTTPCode == http.StatusBadRequest ||
		e.HTTPCode == http.StatusUnauthorized
}

// Code returns the v1 error code of a user error.
func (e RespError) Code() v1.ErrorCodeT {
	if !e.IsUserError() {
		return v1.ErrorCodeInvalid
	}
	return v1.ErrorCodeT(e.ErrorReply.ErrorCode)
}

// makeReq makes a curated http request to the method and route provided,
// serializing the provided object as the request body, and returning a byte
// slice of the response body. A RespError is returned if curated responds
// with anything other than a 200 http status code.
func (c *Client) makeReq(ctx context.Context, method, route string, v interface{}) ([]byte, error) {
	// Serialize body
	var (
		reqBody []byte
		err     error
	)
	if v != nil {
		reqBody, err = json.Marshal(v)
		if err != nil {
			return nil, err
		}
	}

	// Send request
	fullRoute := c.rpcHost + v1.APIRoute + route
	req, err := http.NewRequestWithContext(ctx, method,
		fullRoute, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.rpcUser, c.rpcPass)
	r, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer r.Body.Close()

	// Handle reply
	if r.StatusCode != http.StatusOK {
		var e ErrorReply
		decoder := json.NewDecoder(r.Body)
		if err := decoder.Decode(&e); err != nil {
			return nil, fmt.Errorf("status code %v: %v", r.StatusCode, err)
		}
		return nil, RespError{
			HTTPCode:   r.StatusCode,
			ErrorReply: e,
		}
	}

	return io.ReadAll(r.Body)
}

// post sends a POST request and decodes the reply into reply.
func (c *Client) post(ctx context.Context, route string, req, reply interface{}) error {
	resBody, err := c.makeReq(ctx, http.MethodPost, route, req)
	if err != nil {
		return err
	}
	return json.Unmarshal(resBody, reply)
}

// New returns a new curated client. The certificate at rpcCert is trusted
// when it is provided.
func New(rpcHost, rpcCert, rpcUser, rpcPass string, skipVerify bool) (*Client, error) {
	h, err := util.NewHTTPClient(skipVerify, rpcCert)
	if err != nil {
		return nil, err
	}
	return &Client{
		rpcHost: rpcHost,
		rpcUser: rpcUser,
		rpcPass: rpcPass,
		http:    h,
	}, nil
}
