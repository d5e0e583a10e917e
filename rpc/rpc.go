// Copyright (C) 2025 relaywire
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package rpc implements the JSON-RPC 2.0 envelope carried inside every
// relay frame: request/response construction, id allocation, and
// structural classification of inbound payloads.
package rpc

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"
)

const protocolVersion = "2.0"

// ErrRpcError is returned when a response carries no result.
var ErrRpcError = errors.New("rpc: response carries no result")

// Request is an outbound or inbound JSON-RPC request.
type Request struct {
	Id      int64           `json:"id"`
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is an outbound or inbound JSON-RPC response.
type Response struct {
	Id      int64           `json:"id"`
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the JSON-RPC error object.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("rpc: %d %s", e.Code, e.Message)
}

// PayloadId allocates a JSON-RPC id that is monotonically non-colliding
// within a process: a millisecond timestamp in the high bits and a
// random entropy suffix in the low bits, bumped past the last id issued
// whenever it would not exceed it.
func PayloadId() int64 {
	millis := time.Now().UnixMilli()
	suffix, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		// crypto/rand failure is effectively unrecoverable; fall back
		// to a zero suffix rather than panicking the caller.
		suffix = big.NewInt(0)
	}
	id := millis*1000 + suffix.Int64()
	for {
		last := lastPayloadId.Load()
		next := id
		if next <= last {
			next = last + 1
		}
		if lastPayloadId.CompareAndSwap(last, next) {
			return next
		}
	}
}

// lastPayloadId is the most recent id PayloadId returned.
var lastPayloadId atomic.Int64

// NewRequest builds a request with a freshly allocated id, marshaling
// params.
func NewRequest(method string, params any) (Request, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Request{}, fmt.Errorf("rpc: marshal params: %w", err)
	}
	return Request{
		Id:      PayloadId(),
		Jsonrpc: protocolVersion,
		Method:  method,
		Params:  raw,
	}, nil
}

// NewResult builds a successful response to id.
func NewResult(id int64, result any) (Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{}, fmt.Errorf("rpc: marshal result: %w", err)
	}
	return Response{Id: id, Jsonrpc: protocolVersion, Result: raw}, nil
}

// payloadShape is used only to classify an inbound payload.
type payloadShape struct {
	Method *string          `json:"method"`
	Result *json.RawMessage `json:"result"`
}

// Classify reports whether raw is structurally a request (has method)
// or a response (any other JSON object, whether it carries a result, an
// error, or neither). Only a payload that does not parse as JSON is
// classified as neither.
func Classify(raw json.RawMessage) (isRequest, isResponse bool) {
	var shape payloadShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return false, false
	}
	if shape.Method != nil {
		return true, false
	}
	return false, true
}

// DecodeResult extracts v from a successful Response, or ErrRpcError if
// the response carries an error or no result.
func DecodeResult(resp Response, v any) error {
	if resp.Error != nil {
		return fmt.Errorf("%w: %s", ErrRpcError, resp.Error.Message)
	}
	if len(resp.Result) == 0 {
		return ErrRpcError
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, v); err != nil {
		return fmt.Errorf("rpc: unmarshal result: %w", err)
	}
	return nil
}
