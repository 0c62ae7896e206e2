package officeapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/office-portal/pkg/logging"
)

type stubCreds struct {
	mu          sync.Mutex
	credential  string
	invalidated int
}

func (s *stubCreds) Credential() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential, s.credential != ""
}

func (s *stubCreds) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = ""
	s.invalidated++
}

func newTestClient(t *testing.T, creds CredentialSource, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	client, err := New(Config{BaseURL: ts.URL + "/", Logger: logging.Default()}, creds)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestListBookings_Success(t *testing.T) {
	creds := &stubCreds{credential: BasicCredential("front", "desk")}
	client := newTestClient(t, creds, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/bookings" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("start") != "2026-01-01" || q.Get("end") != "2026-01-31" || q.Get("limit") != "250" {
			t.Fatalf("query = %s", r.URL.RawQuery)
		}
		if got := r.Header.Get("Authorization"); got != "Basic ZnJvbnQ6ZGVzaw==" {
			t.Fatalf("Authorization = %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Fatal("expected request id header")
		}
		_, _ = w.Write([]byte(`{"ok":true,"results":[{"confirmation_id":"CNF-1","patient_first":"Ada","created_at":"2026-01-02T09:00:00Z"},{"first_name":"Legacy"}]}`))
	})

	bookings, err := client.ListBookings(context.Background(), day("2026-01-01"), day("2026-01-31"), 250)
	if err != nil {
		t.Fatalf("ListBookings() error = %v", err)
	}
	if len(bookings) != 2 {
		t.Fatalf("len(bookings) = %d, want 2", len(bookings))
	}
	if bookings[0].ConfirmationID != "CNF-1" || bookings[0].DateBooked() != "2026-01-02" {
		t.Fatalf("unexpected first booking %+v", bookings[0])
	}
	if bookings[1].HasIdentity() || bookings[1].FirstName != "Legacy" {
		t.Fatalf("unexpected second booking %+v", bookings[1])
	}
}

func TestListBookings_OmitsRangeWhenZero(t *testing.T) {
	creds := &stubCreds{credential: "Basic x"}
	client := newTestClient(t, creds, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("start") || r.URL.Query().Has("end") {
			t.Fatalf("unexpected range in %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"ok":true,"results":[]}`))
	})
	if _, err := client.ListBookings(context.Background(), time.Time{}, time.Time{}, 0); err != nil {
		t.Fatalf("ListBookings() error = %v", err)
	}
}

func TestAuthorizedCallWithoutCredential(t *testing.T) {
	called := false
	client := newTestClient(t, &stubCreds{}, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	_, err := client.Analytics(context.Background(), day("2026-01-01"), day("2026-01-02"))
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if called {
		t.Fatal("no request should be sent without a credential")
	}
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	creds := &stubCreds{credential: "Basic stale"}
	calls := 0
	client := newTestClient(t, creds, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ListMessages(context.Background(), "+15551234567")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if creds.invalidated != 1 {
		t.Fatalf("expected one invalidation, got %d", creds.invalidated)
	}

	_, err = client.ListMessages(context.Background(), "+15551234567")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated on the next call, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no retry with stale credentials, got %d calls", calls)
	}
}

func TestVerifyDoesNotInvalidate(t *testing.T) {
	creds := &stubCreds{credential: "Basic current"}
	client := newTestClient(t, creds, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "1" {
			t.Fatalf("verify limit = %s", r.URL.Query().Get("limit"))
		}
		if r.Header.Get("Authorization") != "Basic candidate" {
			t.Fatalf("verify should use the candidate credential")
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	if err := client.Verify(context.Background(), "Basic candidate"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if creds.invalidated != 0 {
		t.Fatal("verify must not invalidate the live session")
	}
}

func TestEnvelopeErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"ok false with message", http.StatusOK, `{"ok":false,"error":"range too large"}`, "range too large"},
		{"ok false object error", http.StatusOK, `{"ok":false,"error":{"message":"bad range"}}`, "bad range"},
		{"malformed", http.StatusOK, `{"ok":tru`, "malformed response envelope"},
		{"empty body", http.StatusOK, ``, "malformed response envelope"},
		{"non-2xx with envelope", http.StatusBadGateway, `{"ok":false,"error":"upstream down"}`, "upstream down"},
		{"non-2xx plain", http.StatusInternalServerError, `boom`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &stubCreds{credential: "Basic x"}, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.Analytics(context.Background(), day("2026-01-01"), day("2026-01-02"))
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Message != tt.message {
				t.Fatalf("APIError = %+v", apiErr)
			}
		})
	}
}

func TestAnalyticsSummary(t *testing.T) {
	client := newTestClient(t, &stubCreds{credential: "Basic x"}, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analytics" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"ok":true,"byStatus":[{"key":"new","count":4},{"key":"existing","count":"6"},{"key":"other","count":9}]}`))
	})
	summary, err := client.Analytics(context.Background(), day("2026-01-01"), day("2026-01-02"))
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}
	if summary.New != 4 || summary.Existing != 6 || summary.Total() != 10 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestDeleteBookings(t *testing.T) {
	client := newTestClient(t, &stubCreds{credential: "Basic x"}, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/bookings/delete" {
			t.Fatalf("%s %s", r.Method, r.URL.Path)
		}
		var body struct {
			ConfirmationIDs []string `json:"confirmationIds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.ConfirmationIDs) != 2 || body.ConfirmationIDs[1] != "CNF-2" {
			t.Fatalf("ids = %v", body.ConfirmationIDs)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	if err := client.DeleteBookings(context.Background(), []string{"CNF-1", "CNF-2"}); err != nil {
		t.Fatalf("DeleteBookings() error = %v", err)
	}
	if err := client.DeleteBookings(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty id list")
	}
}

func TestSendMessageBody(t *testing.T) {
	client := newTestClient(t, &stubCreds{credential: "Basic x"}, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["to"] != "+15551234567" || body["body"] != "hi" {
			t.Fatalf("body = %v", body)
		}
		if _, ok := body["context"]; ok {
			t.Fatal("context should be omitted when empty")
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	if err := client.SendMessage(context.Background(), SendMessageRequest{To: "+15551234567", Body: "hi"}); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
}

func TestContextCancelled(t *testing.T) {
	client := newTestClient(t, &stubCreds{credential: "Basic x"}, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.ListBookings(ctx, time.Time{}, time.Time{}, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
