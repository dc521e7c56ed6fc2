package web_test

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ocakli/envanter/internal/db"
	"github.com/ocakli/envanter/internal/idp/local"
	"github.com/ocakli/envanter/internal/live"
	"github.com/ocakli/envanter/internal/service"
	"github.com/ocakli/envanter/internal/session"
	"github.com/ocakli/envanter/internal/store"
	"github.com/ocakli/envanter/internal/web"
	"github.com/ocakli/envanter/internal/web/templates"
)

const testAdminPassword = "hunter2"

// newTestServer wires the full stack over in-memory SQLite: stores, feeds,
// identity provider, session controller, services, and the HTTP server.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	logger := slog.Default()

	database, err := db.OpenForTesting()
	if err != nil {
		t.Fatalf("OpenForTesting: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	inventoryStore := store.NewInventoryStore(database)
	contactStore := store.NewContactStore(database)

	inventoryFeed := live.NewFeed(inventoryStore, logger)
	contactFeed := live.NewFeed(contactStore, logger)
	if err := inventoryFeed.Refresh(ctx); err != nil {
		t.Fatalf("refresh inventory feed: %v", err)
	}
	if err := contactFeed.Refresh(ctx); err != nil {
		t.Fatalf("refresh contact feed: %v", err)
	}

	sum := sha256.Sum256([]byte(testAdminPassword))
	sess := session.NewController(session.ControllerOptions{
		Provider:          local.NewProvider(database, logger),
		State:             store.NewStateStore(database),
		Logger:            logger,
		AdminPasswordHash: hex.EncodeToString(sum[:]),
	})
	sess.Start(ctx)
	t.Cleanup(sess.Close)

	srv := web.NewServer(
		service.NewInventoryService(inventoryStore, inventoryFeed, logger),
		service.NewContactService(contactStore, contactFeed, logger),
		sess,
		inventoryFeed,
		contactFeed,
		templates.FS,
		logger,
	)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

// noRedirectClient returns the response for the first request instead of
// following 3xx redirects.
func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func loginAdmin(t *testing.T, srv *httptest.Server) {
	t.Helper()
	resp, err := noRedirectClient().PostForm(srv.URL+"/login", url.Values{"password": {testAdminPassword}})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("admin login status = %d, want 303", resp.StatusCode)
	}
}

func loginGuest(t *testing.T, srv *httptest.Server) {
	t.Helper()
	resp, err := noRedirectClient().Post(srv.URL+"/login/guest", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("POST /login/guest: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("guest login status = %d, want 303", resp.StatusCode)
	}
}

func createItem(t *testing.T, srv *httptest.Server, model string) {
	t.Helper()
	resp, err := noRedirectClient().PostForm(srv.URL+"/inventory", url.Values{
		"model":         {model},
		"serial_number": {"SN-" + model},
		"box_status":    {"original"},
		"location":      {"Depo A"},
		"entry_date":    {"2025-03-01"},
	})
	if err != nil {
		t.Fatalf("POST /inventory: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("create item status = %d, want 303", resp.StatusCode)
	}
}

func getBody(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := noRedirectClient().Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIntegration_GuardRedirectsToLogin(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	for _, path := range []string{"/inventory", "/contacts", "/"} {
		resp, err := noRedirectClient().Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusSeeOther {
			t.Errorf("GET %s status = %d, want 303", path, resp.StatusCode)
		}
	}

	// HTMX requests get a header-based redirect instead.
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/inventory", nil)
	req.Header.Set("HX-Request", "true")
	resp, err := noRedirectClient().Do(req)
	if err != nil {
		t.Fatalf("GET /inventory (HX): %v", err)
	}
	_ = resp.Body.Close()
	if got := resp.Header.Get("HX-Redirect"); got != "/login" {
		t.Errorf("HX-Redirect = %q, want /login", got)
	}
}

func TestIntegration_GuestLoginAndReadOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	loginGuest(t, srv)

	status, body := getBody(t, srv, "/inventory")
	if status != http.StatusOK {
		t.Fatalf("GET /inventory status = %d, want 200", status)
	}
	if strings.Contains(body, `action="/inventory"`) {
		t.Error("guest page should not contain the create form")
	}

	// Mutations are admin-only.
	resp, err := noRedirectClient().PostForm(srv.URL+"/inventory", url.Values{"model": {"X"}})
	if err != nil {
		t.Fatalf("POST /inventory: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("guest POST /inventory status = %d, want 403", resp.StatusCode)
	}
}

func TestIntegration_AdminLoginWrongPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	resp, err := noRedirectClient().PostForm(srv.URL+"/login", url.Values{"password": {"nope"}})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Wrong password") {
		t.Errorf("body does not contain the error message:\n%s", body)
	}
}

func TestIntegration_AdminCreatesAndListsItems(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	loginAdmin(t, srv)

	createItem(t, srv, "TP-Link EAP225")

	status, body := getBody(t, srv, "/inventory")
	if status != http.StatusOK {
		t.Fatalf("GET /inventory status = %d, want 200", status)
	}
	if !strings.Contains(body, "TP-Link EAP225") {
		t.Errorf("inventory page does not contain the created item:\n%s", body)
	}
}

func TestIntegration_InventorySearch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	loginAdmin(t, srv)

	createItem(t, srv, "TP-Link EAP225")
	createItem(t, srv, "Dell Latitude")

	status, body := getBody(t, srv, "/inventory?q=eap")
	if status != http.StatusOK {
		t.Fatalf("GET /inventory?q=eap status = %d, want 200", status)
	}
	if !strings.Contains(body, "TP-Link EAP225") || strings.Contains(body, "Dell Latitude") {
		t.Errorf("search did not narrow the table:\n%s", body)
	}
}

func TestIntegration_CreateItemValidationError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	loginAdmin(t, srv)

	resp, err := noRedirectClient().PostForm(srv.URL+"/inventory", url.Values{
		"model":      {"TP-Link EAP225"},
		"location":   {"Depo A"},
		"entry_date": {"2025-03-01"},
		// serial_number missing
	})
	if err != nil {
		t.Fatalf("POST /inventory: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "serial number is required") {
		t.Errorf("body does not contain the validation message:\n%s", body)
	}
}

func TestIntegration_UpdateItem(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	loginAdmin(t, srv)
	createItem(t, srv, "TP-Link EAP225")

	_, body := getBody(t, srv, "/inventory")
	marker := `hx-delete="/inventory/`
	idx := strings.Index(body, marker)
	if idx < 0 {
		t.Fatalf("no item id in page:\n%s", body)
	}
	rest := body[idx+len(marker):]
	id := rest[:strings.IndexByte(rest, '"')]

	form := url.Values{
		"model":         {"TP-Link EAP225"},
		"serial_number": {"SN-TP-Link EAP225"},
		"box_status":    {"white_box"},
		"location":      {"Depo B"},
		"entry_date":    {"2025-03-01"},
		"exit_date":     {"2025-04-01"},
	}
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/inventory/"+id,
		strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("new PUT request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := noRedirectClient().Do(req)
	if err != nil {
		t.Fatalf("PUT /inventory/%s: %v", id, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("update status = %d, want 303", resp.StatusCode)
	}

	_, body = getBody(t, srv, "/inventory")
	if !strings.Contains(body, "Depo B") || !strings.Contains(body, "White Box") {
		t.Errorf("updated fields not rendered:\n%s", body)
	}
}

func TestIntegration_DeleteItemHXRedirect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	loginAdmin(t, srv)
	createItem(t, srv, "TP-Link EAP225")

	// Dig the id out of the rendered delete button.
	_, body := getBody(t, srv, "/inventory")
	marker := `hx-delete="/inventory/`
	idx := strings.Index(body, marker)
	if idx < 0 {
		t.Fatalf("no delete button in page:\n%s", body)
	}
	rest := body[idx+len(marker):]
	id := rest[:strings.IndexByte(rest, '"')]

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/inventory/"+id, nil)
	if err != nil {
		t.Fatalf("new DELETE request: %v", err)
	}
	resp, err := noRedirectClient().Do(req)
	if err != nil {
		t.Fatalf("DELETE /inventory/%s: %v", id, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("HX-Redirect"); got != "/inventory" {
		t.Errorf("HX-Redirect = %q, want /inventory", got)
	}

	_, body = getBody(t, srv, "/inventory")
	if strings.Contains(body, "TP-Link EAP225") {
		t.Error("deleted item still rendered")
	}
}

func TestIntegration_ContactPhoneFormatting(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	loginAdmin(t, srv)

	resp, err := noRedirectClient().PostForm(srv.URL+"/contacts", url.Values{
		"full_name": {"Ayşe Yılmaz"},
		"company":   {"Acme Lojistik"},
		"phone":     {"05325559590"},
	})
	if err != nil {
		t.Fatalf("POST /contacts: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("create contact status = %d, want 303", resp.StatusCode)
	}

	_, body := getBody(t, srv, "/contacts")
	if !strings.Contains(body, "0532 555 95 90") {
		t.Errorf("contact page does not show the grouped phone number:\n%s", body)
	}
}

func TestIntegration_InventoryEventsStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	loginAdmin(t, srv)
	createItem(t, srv, "TP-Link EAP225")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/inventory/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /inventory/events: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", got)
	}

	// The subscription fires immediately with the current snapshot; the
	// first event must already carry the item.
	var event strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		event.WriteString(line)
		event.WriteString("\n")
	}
	if !strings.Contains(event.String(), "TP-Link EAP225") {
		t.Errorf("first SSE event does not contain the item:\n%s", event.String())
	}
}

func TestIntegration_LogoutClearsSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	loginAdmin(t, srv)

	resp, err := noRedirectClient().Post(srv.URL+"/logout", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("POST /logout: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("logout status = %d, want 303", resp.StatusCode)
	}

	resp, err = noRedirectClient().Get(srv.URL + "/inventory")
	if err != nil {
		t.Fatalf("GET /inventory: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("post-logout GET /inventory status = %d, want 303", resp.StatusCode)
	}
}
