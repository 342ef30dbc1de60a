package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"medchain/api/server"
	"medchain/core/state"
)

// DefaultNode is used when neither --node nor MEDCHAIN_NODE is set.
const DefaultNode = "http://localhost:8080"

// Client talks to a medchain node over HTTP.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultNode
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// Error is a non-2xx answer from the node.
type Error struct {
	Status    int
	Message   string
	RequestID string
}

func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("node returned %d: %s (request %s)", e.Status, e.Message, e.RequestID)
	}
	return fmt.Sprintf("node returned %d: %s", e.Status, e.Message)
}

func (c *Client) send(method, path string, body interface{}) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.HTTP.Do(req)
}

func (c *Client) do(method, path string, body, out interface{}) error {
	resp, err := c.send(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e server.ErrorResponse
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &Error{Status: resp.StatusCode, Message: e.Error, RequestID: e.RequestID}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) GetStatus() (server.StatusResponse, error) {
	var s server.StatusResponse
	err := c.do(http.MethodGet, "/status", nil, &s)
	return s, err
}

func (c *Client) CreateRequest(doctorID, patientID, purpose string) (server.CreateRequestResponse, error) {
	var out server.CreateRequestResponse
	err := c.do(http.MethodPost, "/api/requests", server.CreateRequestBody{
		DoctorID:  doctorID,
		PatientID: patientID,
		Purpose:   purpose,
	}, &out)
	return out, err
}

func (c *Client) Approve(blockIndex uint64) (server.DecisionResponse, error) {
	return c.decide(blockIndex, "approve")
}

func (c *Client) Reject(blockIndex uint64) (server.DecisionResponse, error) {
	return c.decide(blockIndex, "reject")
}

func (c *Client) decide(blockIndex uint64, verb string) (server.DecisionResponse, error) {
	var out server.DecisionResponse
	err := c.do(http.MethodPost, "/api/requests/"+strconv.FormatUint(blockIndex, 10)+"/"+verb, nil, &out)
	return out, err
}

func (c *Client) RequestStatus(blockIndex uint64) (state.RequestView, error) {
	var out state.RequestView
	err := c.do(http.MethodGet, "/api/requests/"+strconv.FormatUint(blockIndex, 10), nil, &out)
	return out, err
}

func (c *Client) Pending(patientID string) ([]state.RequestView, error) {
	var out struct {
		Pending []state.RequestView `json:"pending"`
	}
	err := c.do(http.MethodGet, "/api/requests/pending/"+url.PathEscape(patientID), nil, &out)
	return out.Pending, err
}

func (c *Client) History(doctorID string) ([]state.RequestView, error) {
	var out struct {
		Requests []state.RequestView `json:"requests"`
	}
	err := c.do(http.MethodGet, "/api/requests/doctor/"+url.PathEscape(doctorID), nil, &out)
	return out.Requests, err
}

func (c *Client) Access(doctorID, patientID string) (server.AccessResponse, error) {
	var out server.AccessResponse
	q := url.Values{"doctorId": {doctorID}, "patientId": {patientID}}
	err := c.do(http.MethodGet, "/api/access?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) Audit(patientID string) (state.AuditTrail, error) {
	var out state.AuditTrail
	err := c.do(http.MethodGet, "/api/audit/"+url.PathEscape(patientID), nil, &out)
	return out, err
}

func (c *Client) Chain() (server.ChainResponse, error) {
	var out server.ChainResponse
	err := c.do(http.MethodGet, "/api/chain", nil, &out)
	return out, err
}

func (c *Client) Validate() (server.ValidateResponse, error) {
	var out server.ValidateResponse
	err := c.do(http.MethodGet, "/api/chain/validate", nil, &out)
	return out, err
}
