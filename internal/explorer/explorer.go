// Copyright © 2024 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/diir-io/diir-cli/internal/log"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

var (
	ErrAlreadyVerified = errors.New("contract source code already verified")
	ErrPending         = errors.New("verification pending")
	ErrNoAPIKey        = errors.New("no explorer api key configured")
)

const (
	statusOK           = "1"
	resultPending      = "Pending in queue"
	resultVerified     = "Pass - Verified"
	resultAlready      = "Already Verified"
	standardJSONFormat = "solidity-standard-json-input"
)

// Response is the envelope every Etherscan-compatible API returns.
type Response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (r *Response) resultString() string {
	var s string
	if err := json.Unmarshal(r.Result, &s); err != nil {
		return string(r.Result)
	}
	return s
}

type VerifyRequest struct {
	Address string
	// ContractName is the fully qualified name, e.g. contracts/DiiRTip.sol:DiiRTip
	ContractName    string
	CompilerVersion string
	// SourceCode is the standard JSON compiler input.
	SourceCode json.RawMessage
	// ConstructorArgs is the ABI encoded constructor input, hex without 0x.
	ConstructorArgs string
}

type SourceCode struct {
	SourceCode      string `json:"SourceCode"`
	ContractName    string `json:"ContractName"`
	CompilerVersion string `json:"CompilerVersion"`
	Proxy           string `json:"Proxy"`
	Implementation  string `json:"Implementation"`
}

type Client struct {
	client       *resty.Client
	apiKey       string
	limiter      *rate.Limiter
	pollInterval time.Duration
	maxPolls     int
}

// NewClient talks to an Etherscan-compatible API at apiURL, limited to
// five requests per second.
func NewClient(apiURL, apiKey string) *Client {
	return &Client{
		client:       resty.New().SetBaseURL(apiURL).SetTimeout(30 * time.Second),
		apiKey:       apiKey,
		limiter:      rate.NewLimiter(5, 5),
		pollInterval: 5 * time.Second,
		maxPolls:     60,
	}
}

func (c *Client) WithLimiter(limiter *rate.Limiter) *Client {
	c.limiter = limiter
	return c
}

func (c *Client) WithPolling(interval time.Duration, maxPolls int) *Client {
	c.pollInterval = interval
	c.maxPolls = maxPolls
	return c
}

func (c *Client) HTTPClient() *http.Client {
	return c.client.GetClient()
}

func (c *Client) do(ctx context.Context, method string, params map[string]string) (*Response, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var resp Response
	req := c.client.R().SetContext(ctx).SetResult(&resp)
	if method == http.MethodPost {
		params["apikey"] = c.apiKey
		req.SetFormData(params)
	} else {
		req.SetQueryParam("apikey", c.apiKey).SetQueryParams(params)
	}
	res, err := req.Execute(method, "")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("explorer returned %s: %s", res.Status(), strings.TrimSpace(res.String()))
	}
	log.LoggerFromContext(ctx).Trace(fmt.Sprintf("explorer %s %s: %s %s", params["module"], params["action"], resp.Status, resp.resultString()))
	return &resp, nil
}

// VerifySource submits source code and returns the guid to poll.
func (c *Client) VerifySource(ctx context.Context, req *VerifyRequest) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, map[string]string{
		"module":                "contract",
		"action":                "verifysourcecode",
		"contractaddress":       req.Address,
		"sourceCode":            string(req.SourceCode),
		"codeformat":            standardJSONFormat,
		"contractname":          req.ContractName,
		"compilerversion":       req.CompilerVersion,
		"constructorArguements": req.ConstructorArgs,
	})
	if err != nil {
		return "", err
	}
	result := resp.resultString()
	if resp.Status != statusOK {
		if strings.Contains(strings.ToLower(result), "already verified") {
			return "", ErrAlreadyVerified
		}
		return "", fmt.Errorf("verification of %s rejected: %s", req.Address, result)
	}
	return result, nil
}

func (c *Client) CheckStatus(ctx context.Context, guid string) (string, error) {
	return c.checkGUID(ctx, "checkverifystatus", guid)
}

// VerifyProxy asks the explorer to link a proxy to its implementation.
// expectedImplementation may be empty.
func (c *Client) VerifyProxy(ctx context.Context, proxy, expectedImplementation string) (string, error) {
	params := map[string]string{
		"module":  "contract",
		"action":  "verifyproxycontract",
		"address": proxy,
	}
	if expectedImplementation != "" {
		params["expectedimplementation"] = expectedImplementation
	}
	resp, err := c.do(ctx, http.MethodPost, params)
	if err != nil {
		return "", err
	}
	if resp.Status != statusOK {
		return "", fmt.Errorf("proxy verification of %s rejected: %s", proxy, resp.resultString())
	}
	return resp.resultString(), nil
}

func (c *Client) CheckProxyStatus(ctx context.Context, guid string) (string, error) {
	return c.checkGUID(ctx, "checkproxyverification", guid)
}

func (c *Client) checkGUID(ctx context.Context, action, guid string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, map[string]string{
		"module": "contract",
		"action": action,
		"guid":   guid,
	})
	if err != nil {
		return "", err
	}
	result := resp.resultString()
	switch {
	case result == resultPending:
		return result, ErrPending
	case resp.Status == statusOK:
		return result, nil
	case strings.Contains(result, resultAlready):
		return result, ErrAlreadyVerified
	default:
		return result, fmt.Errorf("verification failed: %s", result)
	}
}

// Wait polls check until the explorer has an answer for guid.
func (c *Client) Wait(ctx context.Context, guid string, check func(ctx context.Context, guid string) (string, error)) (string, error) {
	for i := 0; ; i++ {
		result, err := check(ctx, guid)
		if !errors.Is(err, ErrPending) {
			return result, err
		}
		if i+1 >= c.maxPolls {
			return result, fmt.Errorf("gave up waiting for verification %s: %w", guid, err)
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) SourceCode(ctx context.Context, address string) (*SourceCode, error) {
	resp, err := c.do(ctx, http.MethodGet, map[string]string{
		"module":  "contract",
		"action":  "getsourcecode",
		"address": address,
	})
	if err != nil {
		return nil, err
	}
	if resp.Status != statusOK {
		return nil, fmt.Errorf("unable to get source code for %s: %s", address, resp.resultString())
	}
	var results []*SourceCode
	if err := json.Unmarshal(resp.Result, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no source code result for %s", address)
	}
	return results[0], nil
}

func (c *Client) IsVerified(ctx context.Context, address string) (bool, error) {
	source, err := c.SourceCode(ctx, address)
	if err != nil {
		return false, err
	}
	return source.SourceCode != "", nil
}
