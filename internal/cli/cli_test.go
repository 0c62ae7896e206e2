package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/office-portal/internal/config"
	"github.com/wolfman30/office-portal/internal/csvexport"
	"github.com/wolfman30/office-portal/internal/session"
)

type officeStub struct {
	mu       sync.Mutex
	bookings []map[string]any
	deleted  [][]string
	sent     []map[string]any
}

func (s *officeStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	user, pass, ok := r.BasicAuth()
	if !ok || user != "frontdesk" || pass != "s3cret" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"ok":false,"error":"unauthorized"}`)
		return
	}
	switch r.URL.Path {
	case "/bookings":
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "results": s.bookings})
	case "/analytics":
		_, _ = io.WriteString(w, `{"ok":true,"byStatus":[{"key":"new","count":4},{"key":"existing","count":7}]}`)
	case "/bookings/delete":
		var req struct {
			ConfirmationIDs []string `json:"confirmationIds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.deleted = append(s.deleted, req.ConfirmationIDs)
		_, _ = io.WriteString(w, `{"ok":true}`)
	case "/messages":
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "results": s.sent})
	case "/messages/send":
		var msg map[string]any
		_ = json.NewDecoder(r.Body).Decode(&msg)
		s.sent = append(s.sent, msg)
		_, _ = io.WriteString(w, `{"ok":true}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"ok":false,"error":"not found"}`)
	}
}

type cliHarness struct {
	office *officeStub
	cfg    *appconfig.Config
	store  *session.MemoryStore
	s3     *recordingS3
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	office := &officeStub{bookings: []map[string]any{
		{"confirmation_id": "CNF-1", "created_at": "2026-01-01T09:00:00Z", "patient_first": "Ada", "patient_last": "Lovelace", "patient_status": "new", "patient_phone": "(555) 123-4567"},
		{"confirmation_id": "CNF-2", "created_at": "2026-01-03T10:00:00Z", "patient_first": "Grace", "patient_last": "Hopper", "patient_status": "existing"},
	}}
	upstream := httptest.NewServer(office)
	t.Cleanup(upstream.Close)
	return &cliHarness{
		office: office,
		cfg:    &appconfig.Config{OfficeAPIBaseURL: upstream.URL, ExportDir: t.TempDir(), DefaultRangeDays: 30},
		store:  session.NewMemoryStore(),
		s3:     &recordingS3{},
	}
}

func (h *cliHarness) run(args ...string) (string, error) {
	var out bytes.Buffer
	root := NewRootCmd(Options{
		Config:   h.cfg,
		Err:      io.Discard,
		Store:    h.store,
		S3:       func(context.Context) (csvexport.S3API, error) { return h.s3, nil },
		Clock:    func() time.Time { return time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC) },
		Location: time.UTC,
	})
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *cliHarness) login(t *testing.T) {
	t.Helper()
	out, err := h.run("login", "--user", "frontdesk", "--password", "s3cret")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as frontdesk")
}

func TestCommandsRequireLogin(t *testing.T) {
	h := newCLIHarness(t)
	_, err := h.run("bookings")
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	h := newCLIHarness(t)
	_, err := h.run("login", "--user", "frontdesk", "--password", "wrong")
	assert.ErrorIs(t, err, session.ErrLoginFailed)

	_, ok, _ := h.store.Load(context.Background())
	assert.False(t, ok)
}

func TestLoginPasswordFromEnv(t *testing.T) {
	h := newCLIHarness(t)
	t.Setenv("OFFICE_PASSWORD", "s3cret")
	_, err := h.run("login", "--user", "frontdesk")
	require.NoError(t, err)
}

func TestLogoutForgetsCredential(t *testing.T) {
	h := newCLIHarness(t)
	h.login(t)
	out, err := h.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	_, err = h.run("series")
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestBookingsTable(t *testing.T) {
	h := newCLIHarness(t)
	h.login(t)

	out, err := h.run("bookings")
	require.NoError(t, err)
	assert.Contains(t, out, "2025-12-05..2026-01-03")
	assert.Contains(t, out, "CNF-1")
	assert.Contains(t, out, "CNF-2")
	assert.Contains(t, out, "New Patient")

	out, err = h.run("bookings", "--query", "ADA")
	require.NoError(t, err)
	assert.Contains(t, out, "CNF-1")
	assert.NotContains(t, out, "CNF-2")
}

func TestBookingsRangeFlags(t *testing.T) {
	h := newCLIHarness(t)
	h.login(t)

	out, err := h.run("bookings", "--range", "today")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-01-03..2026-01-03")

	_, err = h.run("bookings", "--from", "2026-01-01")
	assert.Error(t, err)
	_, err = h.run("bookings", "--from", "2026-01-03", "--to", "2026-01-01")
	assert.Error(t, err)
	_, err = h.run("bookings", "--range", "7", "--from", "2026-01-01", "--to", "2026-01-02")
	assert.Error(t, err)
}

func TestSeriesAndBreakdown(t *testing.T) {
	h := newCLIHarness(t)
	h.login(t)

	out, err := h.run("series", "--from", "2026-01-01", "--to", "2026-01-03")
	require.NoError(t, err)
	for _, day := range []string{"2026-01-01", "2026-01-02", "2026-01-03"} {
		assert.Contains(t, out, day)
	}

	out, err = h.run("breakdown", "--range", "mtd")
	require.NoError(t, err)
	assert.Contains(t, out, "Existing")
	assert.Contains(t, out, "11")
}

func TestExportWritesFile(t *testing.T) {
	h := newCLIHarness(t)
	h.login(t)

	out, err := h.run("export", "--query", "hopper")
	require.NoError(t, err)
	path := filepath.Join(h.cfg.ExportDir, "online_bookings_2026-01-03.csv")
	assert.Contains(t, out, "Exported 1 bookings to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(csvexport.Header, ","), lines[0])
	assert.Contains(t, lines[1], "Grace Hopper")
}

type recordingS3 struct {
	keys []string
}

func (r *recordingS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	r.keys = append(r.keys, *in.Key)
	return &s3.PutObjectOutput{}, nil
}

func TestExportArchiveToS3(t *testing.T) {
	h := newCLIHarness(t)
	h.cfg.ExportS3Bucket = "exports"
	h.cfg.ExportS3Prefix = "bookings"
	h.login(t)

	out, err := h.run("export", "--archive")
	require.NoError(t, err)
	assert.Contains(t, out, "s3://exports/bookings/online_bookings_2026-01-03.csv")
	assert.Equal(t, []string{"bookings/online_bookings_2026-01-03.csv"}, h.s3.keys)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	h := newCLIHarness(t)
	h.login(t)

	out, err := h.run("delete", "--id", "CNF-1")
	assert.Error(t, err)
	assert.Contains(t, out, "Would permanently delete 1 bookings: CNF-1")
	assert.Empty(t, h.office.deleted)

	_, err = h.run("delete", "--id", "CNF-9", "--yes")
	assert.Error(t, err)
	assert.Empty(t, h.office.deleted)

	out, err = h.run("delete", "--id", "CNF-1", "--id", "CNF-2", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 bookings")
	assert.Equal(t, [][]string{{"CNF-1", "CNF-2"}}, h.office.deleted)
}

func TestSendByBooking(t *testing.T) {
	h := newCLIHarness(t)
	h.login(t)

	out, err := h.run("send", "--booking", "CNF-1", "--body", "See you tomorrow")
	require.NoError(t, err)
	assert.Contains(t, out, "Message sent to +15551234567")
	require.Len(t, h.office.sent, 1)
	assert.Equal(t, "+15551234567", h.office.sent[0]["to"])
	assert.Equal(t, "CNF-1", h.office.sent[0]["context"])

	_, err = h.run("send", "--booking", "CNF-2", "--body", "hi")
	assert.Error(t, err)

	_, err = h.run("send", "--to", "12345", "--body", "hi")
	assert.Error(t, err)
	assert.Len(t, h.office.sent, 1)
}

func TestThread(t *testing.T) {
	h := newCLIHarness(t)
	h.login(t)

	_, err := h.run("send", "--to", "555.123.4567", "--body", "Running late?")
	require.NoError(t, err)

	out, err := h.run("thread", "--to", "(555) 123-4567")
	require.NoError(t, err)
	assert.Contains(t, out, "Running late?")
	assert.Contains(t, out, "+15551234567")
}

func TestRootCommandRegistersEveryFlag(t *testing.T) {
	var root *cobra.Command
	require.NotPanics(t, func() {
		root = NewRootCmd(Options{Config: &appconfig.Config{OfficeAPIBaseURL: "http://office.test"}})
	})

	send, _, err := root.Find([]string{"send"})
	require.NoError(t, err)
	assert.Equal(t, "Phone number in any common format", send.Flags().Lookup("to").Usage)
	assert.NotNil(t, send.Flags().Lookup("range"))
	assert.Nil(t, send.Flags().Lookup("from"))
}

func TestSendByPhoneWithRange(t *testing.T) {
	h := newCLIHarness(t)
	h.login(t)

	out, err := h.run("send", "--to", "(555) 987-6543", "--body", "Your visit is confirmed")
	require.NoError(t, err)
	assert.Contains(t, out, "Message sent to +15559876543")

	out, err = h.run("send", "--range", "mtd", "--booking", "CNF-1", "--body", "See you soon")
	require.NoError(t, err)
	assert.Contains(t, out, "Message sent to +15551234567")
	require.Len(t, h.office.sent, 2)
	assert.Equal(t, "+15559876543", h.office.sent[0]["to"])
}
