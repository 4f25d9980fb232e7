package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"

	"github.com/ycf/billing-portal/internal/config"
	"github.com/ycf/billing-portal/internal/errs"
	"github.com/ycf/billing-portal/internal/service"
)

func testToken(t *testing.T) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

// fakeGateway serves the endpoints the CLI touches.
func fakeGateway(t *testing.T, tok string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Username, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": tok})
	})
	mux.HandleFunc("GET /pets", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"_id":"1","name":"Rex","owner":"Ann","paid":true,"totalExpense":100},
			{"_id":"2","name":"Tom","owner":"Bob","partiallyPaid":{"isPartiallyPaid":true,"amount":"50"},"totalExpense":200}
		]`))
	})
	mux.HandleFunc("GET /pets/{id}/download-pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 " + r.PathValue("id")))
	})
	mux.HandleFunc("GET /expenses", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"_id":"e1","category":"salary","amount":300,"date":"2024-01-02","paymentType":"Online"},
			{"_id":"e2","category":"transport","amount":100,"date":"2024-01-01","paymentType":"Cash"}
		],"total":2}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestPortal(t *testing.T, baseURL string) *service.Portal {
	t.Helper()
	var cfg config.Config
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 5 * time.Second
	cfg.State.Dir = t.TempDir()
	cfg.Login.MaxFailures = 5
	cfg.Login.Window = time.Minute
	cfg.Expenses.PageLimit = 10
	p, err := service.NewPortal(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("portal: %v", err)
	}
	return p
}

func runCmd(t *testing.T, p *service.Portal, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), p, &out, args[0], args[1:])
	return out.String(), err
}

func Test_run_RequiresLogin(t *testing.T) {
	t.Parallel()
	p := newTestPortal(t, fakeGateway(t, testToken(t)).URL)

	if _, err := runCmd(t, p, "pets"); !errors.Is(err, errs.ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated, got %v", err)
	}
	if _, err := runCmd(t, p, "login", "-u", "staff", "-p", "nope"); err == nil || !strings.Contains(err.Error(), "Invalid credentials") {
		t.Fatalf("want server message, got %v", err)
	}
	if _, err := runCmd(t, p, "bogus"); !errors.Is(err, errUsage) {
		t.Fatalf("want errUsage, got %v", err)
	}
}

func Test_run_Session(t *testing.T) {
	t.Parallel()
	tok := testToken(t)
	p := newTestPortal(t, fakeGateway(t, tok).URL)

	if out, err := runCmd(t, p, "login", "-u", "staff", "-p", "pw"); err != nil || strings.TrimSpace(out) != "ok" {
		t.Fatalf("login: %q %v", out, err)
	}

	out, err := runCmd(t, p, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var st map[string]any
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("status json: %v", err)
	}
	if st["phase"] != "authenticated" || st["expiresAt"] == nil {
		t.Fatalf("unexpected status: %v", st)
	}

	if _, err := runCmd(t, p, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := runCmd(t, p, "pets"); !errors.Is(err, errs.ErrNotAuthenticated) {
		t.Fatalf("logged out: want ErrNotAuthenticated, got %v", err)
	}
}

func Test_run_PetsAndStats(t *testing.T) {
	t.Parallel()
	p := newTestPortal(t, fakeGateway(t, testToken(t)).URL)
	if _, err := runCmd(t, p, "login", "-u", "staff", "-p", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	out, err := runCmd(t, p, "pets", "-filter", "partially")
	if err != nil {
		t.Fatalf("pets: %v", err)
	}
	var rows []petRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil || len(rows) != 1 || rows[0].ID != "2" {
		t.Fatalf("filtered pets: %s %v", out, err)
	}
	if _, err := runCmd(t, p, "pets", "-filter", "overdue"); err == nil {
		t.Fatalf("want error for unknown filter")
	}

	out, err = runCmd(t, p, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Total Pets") || !strings.Contains(out, "₹150.00") {
		t.Fatalf("stats output:\n%s", out)
	}
}

func Test_run_InvoiceAndExport(t *testing.T) {
	t.Parallel()
	p := newTestPortal(t, fakeGateway(t, testToken(t)).URL)
	if _, err := runCmd(t, p, "login", "-u", "staff", "-p", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	dir := t.TempDir()

	pdf := filepath.Join(dir, "inv.pdf")
	if _, err := runCmd(t, p, "invoice", "-id", "7", "-o", pdf); err != nil {
		t.Fatalf("invoice: %v", err)
	}
	b, err := os.ReadFile(pdf)
	if err != nil || string(b) != "%PDF-1.4 7" {
		t.Fatalf("invoice body: %q %v", b, err)
	}

	xlsx := filepath.Join(dir, "out.xlsx")
	out, err := runCmd(t, p, "export", "-from", "2024-01-02", "-o", xlsx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.TrimSpace(out) != xlsx {
		t.Fatalf("export prints the path, got %q", out)
	}
	if fi, err := os.Stat(xlsx); err != nil || fi.Size() == 0 {
		t.Fatalf("xlsx not written: %v", err)
	}

	out, err = runCmd(t, p, "expense-stats", "-from", "2024-01-01", "-to", "2024-01-31")
	if err != nil {
		t.Fatalf("expense-stats: %v", err)
	}
	if !strings.Contains(out, "₹400.00") || !strings.Contains(out, "Salary") {
		t.Fatalf("expense-stats output:\n%s", out)
	}
}

func Test_run_Drawer(t *testing.T) {
	t.Parallel()
	p := newTestPortal(t, "http://127.0.0.1:1")

	if _, err := runCmd(t, p, "drawer", "open"); err != nil {
		t.Fatalf("drawer open: %v", err)
	}
	out, err := runCmd(t, p, "drawer", "status")
	if err != nil || !strings.Contains(out, `"drawerOpen": true`) {
		t.Fatalf("drawer status: %q %v", out, err)
	}
	if _, err := runCmd(t, p, "drawer", "toggle"); err == nil {
		t.Fatalf("want error for unknown drawer action")
	}
}
