// Package officeapi is the client for the remote office booking API. It
// owns the wire envelope and the credential gate; everything it returns is
// already resolved into records types.
package officeapi

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/wolfman30/office-portal/internal/records"
)

// CredentialSource gates every authorized call.
type CredentialSource interface {
	// Credential returns the Authorization header value, if signed in.
	Credential() (string, bool)
	// Invalidate tears the session down after a 401.
	Invalidate()
}

// StatusSummary is the new/existing breakdown from the analytics endpoint.
type StatusSummary struct {
	New      int `json:"new"`
	Existing int `json:"existing"`
}

// Total returns New+Existing.
func (s StatusSummary) Total() int {
	return s.New + s.Existing
}

// SendMessageRequest is the body of POST /messages/send.
type SendMessageRequest struct {
	To      string `json:"to"`
	Body    string `json:"body"`
	Context string `json:"context,omitempty"`
}

type deleteRequest struct {
	ConfirmationIDs []string `json:"confirmationIds"`
}

// envelope is the uniform { ok, ...|error } wrapper.
type envelope struct {
	OK       bool             `json:"ok"`
	Error    json.RawMessage  `json:"error,omitempty"`
	Results  []records.Fields `json:"results,omitempty"`
	ByStatus []records.Fields `json:"byStatus,omitempty"`
}

func (e *envelope) errorMessage() string {
	if len(e.Error) == 0 || string(e.Error) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(e.Error)
}

func (e *envelope) summary() StatusSummary {
	var out StatusSummary
	for _, entry := range e.ByStatus {
		count := parseCount(entry.String("count"))
		switch strings.ToLower(entry.String("key")) {
		case "new":
			out.New += count
		case "existing":
			out.Existing += count
		}
	}
	return out
}

func parseCount(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	return 0
}
