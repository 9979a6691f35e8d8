package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkarlsen/userdir/internal/user"
)

// sqliteRepo creates a SQLite-backed repository over an in-memory database.
func sqliteRepo(t *testing.T) user.Repository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			telephone TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return user.NewSQLiteRepository(db)
}

// doJSON performs a request with a JSON body against the router.
func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals a response body or fails the test.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal response %q: %v", w.Body.String(), err)
	}
}

const kajsaJSON = `{"name":"Kajsa Anka","address":"Vägen 13, 67421 Staden","email":"kajsa@acme.org","telephone":"070-0701100"}`

// ─── List ──────────────────────────────────────────────────────────

func TestListUsers_Empty(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodGet, "/api/v1/users", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("empty list body = %q, want []", got)
	}
}

func TestListUsers(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	doJSON(t, router, http.MethodPost, "/api/v1/users", kajsaJSON)

	w := doJSON(t, router, http.MethodGet, "/api/v1/users", "")
	var users []user.User
	decodeBody(t, w, &users)
	if len(users) != 1 || users[0].Name != "Kajsa Anka" {
		t.Errorf("unexpected list: %+v", users)
	}
}

func TestListUsers_QueryFilter(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	doJSON(t, router, http.MethodPost, "/api/v1/users", kajsaJSON)
	doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"name":"Kalle Anka","address":"Vägen 31, 67422 Staden","email":"kalle@acme.org","telephone":"070-0702200"}`)
	doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"name":"Anna Berg","address":"Storgatan 5, Uppsala","email":"anna@example.org","telephone":"072-5551234"}`)

	w := doJSON(t, router, http.MethodGet, "/api/v1/users?query=anka", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var users []user.User
	decodeBody(t, w, &users)
	if len(users) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(users), users)
	}
	for _, u := range users {
		if !strings.Contains(strings.ToLower(u.Name), "anka") {
			t.Errorf("unexpected match: %+v", u)
		}
	}

	// No matches is an empty list, not a 404.
	w = doJSON(t, router, http.MethodGet, "/api/v1/users?query=zebra", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

// ─── Create ────────────────────────────────────────────────────────

func TestCreateUser(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/users", kajsaJSON)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var created user.User
	decodeBody(t, w, &created)
	if created.ID == 0 {
		t.Error("expected assigned ID")
	}
	wantLoc := fmt.Sprintf("/api/v1/users/%d", created.ID)
	if got := w.Header().Get("Location"); got != wantLoc {
		t.Errorf("Location = %q, want %q", got, wantLoc)
	}

	// Record is retrievable at the Location URL.
	w = doJSON(t, router, http.MethodGet, wantLoc, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get created: status = %d", w.Code)
	}
	var got user.User
	decodeBody(t, w, &got)
	if got.Email != "kajsa@acme.org" {
		t.Errorf("email = %q", got.Email)
	}
}

func TestCreateUser_ValidationFailure(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"name":"","address":"","email":"not-an-email","telephone":"070-0701100"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var resp ValidationErrorResponse
	decodeBody(t, w, &resp)
	if resp.Status != http.StatusBadRequest {
		t.Errorf("envelope status = %d", resp.Status)
	}
	if resp.Path != "/api/v1/users" {
		t.Errorf("envelope path = %q", resp.Path)
	}
	if len(resp.Errors) != 3 {
		t.Fatalf("errors = %v, want 3 entries", resp.Errors)
	}
	for _, e := range resp.Errors {
		if !strings.Contains(e, ": ") {
			t.Errorf("error %q not in field: message form", e)
		}
	}
}

func TestCreateUser_MalformedBody(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/users", `{"name":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCreateUser_DuplicateEmailConflict(t *testing.T) {
	srv, _ := testServerWith(t, sqliteRepo(t))
	router := srv.buildRouter()

	doJSON(t, router, http.MethodPost, "/api/v1/users", kajsaJSON)
	w := doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"name":"Other Person","address":"Elsewhere 1","email":"kajsa@acme.org","telephone":"070-0000000"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusConflict, w.Body.String())
	}

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	if resp.Status != http.StatusConflict || resp.Timestamp == "" {
		t.Errorf("envelope = %+v", resp)
	}
}

// ─── Upsert update branch ──────────────────────────────────────────

func TestUpsertUser_UpdatesWhenIDPresent(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/users", kajsaJSON)
	var created user.User
	decodeBody(t, w, &created)

	body := fmt.Sprintf(`{"id":%d,"name":"Kajsa Andersson","address":"Storgatan 7","email":"kajsa@acme.org","telephone":"070-0701100"}`, created.ID)
	w = doJSON(t, router, http.MethodPost, "/api/v1/users", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if w.Header().Get("Location") != "" {
		t.Error("update branch must not set a Location header")
	}

	var updated user.User
	decodeBody(t, w, &updated)
	if updated.Name != "Kajsa Andersson" {
		t.Errorf("name = %q", updated.Name)
	}
}

func TestUpsertUser_UnknownIDNotFound(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"id":999,"name":"Ghost","address":"Nowhere 1","email":"ghost@example.org","telephone":"070-0000000"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Get / Put / Delete ────────────────────────────────────────────

func TestGetUser_NotFound(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodGet, "/api/v1/users/42", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	if resp.Status != http.StatusNotFound || resp.Path != "/api/v1/users/42" {
		t.Errorf("envelope = %+v", resp)
	}
}

func TestPutUser(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/users", kajsaJSON)
	var created user.User
	decodeBody(t, w, &created)

	path := fmt.Sprintf("/api/v1/users/%d", created.ID)
	w = doJSON(t, router, http.MethodPut, path,
		`{"name":"Kajsa Anka","address":"Parkvägen 2","email":"kajsa@acme.org","telephone":"070-0701100"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var updated user.User
	decodeBody(t, w, &updated)
	if updated.Address != "Parkvägen 2" {
		t.Errorf("address = %q", updated.Address)
	}
	if updated.ID != created.ID {
		t.Errorf("id changed: %d -> %d", created.ID, updated.ID)
	}
}

func TestPutUser_SQLiteKeepsCreatedAt(t *testing.T) {
	srv, _ := testServerWith(t, sqliteRepo(t))
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/users", kajsaJSON)
	var created user.User
	decodeBody(t, w, &created)

	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", created.ID),
		`{"name":"Kajsa Anka","address":"Parkvägen 2","email":"kajsa@acme.org","telephone":"070-0701100"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var updated user.User
	decodeBody(t, w, &updated)
	if updated.CreatedAt.IsZero() {
		t.Error("updated record has zero created_at")
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
}

func TestPutUser_NotFound(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPut, "/api/v1/users/42", kajsaJSON)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestPutUser_ValidationFailure(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/users", kajsaJSON)
	var created user.User
	decodeBody(t, w, &created)

	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", created.ID),
		`{"name":"","address":"","email":"","telephone":""}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDeleteUser(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/users", kajsaJSON)
	var created user.User
	decodeBody(t, w, &created)

	path := fmt.Sprintf("/api/v1/users/%d", created.ID)
	w = doJSON(t, router, http.MethodDelete, path, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", w.Body.String())
	}

	w = doJSON(t, router, http.MethodDelete, path, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if w.Body.Len() != 0 {
		t.Errorf("delete of missing record must have an empty body, got %q", w.Body.String())
	}
}

// ─── Pagination ────────────────────────────────────────────────────

func seedUsers(t *testing.T, router http.Handler, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		body := fmt.Sprintf(`{"name":"User %02d","address":"Storgatan %d","email":"user%d@example.org","telephone":"070-%07d"}`, i, i+1, i, i)
		w := doJSON(t, router, http.MethodPost, "/api/v1/users", body)
		if w.Code != http.StatusCreated {
			t.Fatalf("seed user %d: status = %d; body: %s", i, w.Code, w.Body.String())
		}
	}
}

func TestListUsersPaginated_QueryForm(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	seedUsers(t, router, 7)

	w := doJSON(t, router, http.MethodGet, "/api/v1/users/paginated?page=1&size=3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var page user.Page
	decodeBody(t, w, &page)
	if len(page.Content) != 3 {
		t.Errorf("content length = %d, want 3", len(page.Content))
	}
	if page.TotalElements != 7 || page.TotalPages != 3 {
		t.Errorf("totals = %d/%d, want 7/3", page.TotalElements, page.TotalPages)
	}
	if !page.HasNext || !page.HasPrevious {
		t.Errorf("hasNext=%v hasPrevious=%v, want true/true", page.HasNext, page.HasPrevious)
	}
	if page.Content[0].Name != "User 03" {
		t.Errorf("first item = %q, want User 03", page.Content[0].Name)
	}
}

func TestListUsersPaginated_BadParams(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	paths := []string{
		"/api/v1/users/paginated?page=-1&size=3",
		"/api/v1/users/paginated?page=0&size=0",
		"/api/v1/users/paginated?page=abc&size=3",
		"/api/v1/users/paginated",
	}
	for _, path := range paths {
		w := doJSON(t, router, http.MethodGet, path, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", path, w.Code, http.StatusBadRequest)
		}
	}
}

func TestListUsersPaginated_OutOfRange(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	seedUsers(t, router, 2)

	w := doJSON(t, router, http.MethodGet, "/api/v1/users/paginated?page=9&size=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var page user.Page
	decodeBody(t, w, &page)
	if len(page.Content) != 0 {
		t.Errorf("expected empty content, got %d items", len(page.Content))
	}
	if page.TotalElements != 2 {
		t.Errorf("totalElements = %d, want 2", page.TotalElements)
	}
}

func TestListUsersPagePath(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	seedUsers(t, router, 5)

	w := doJSON(t, router, http.MethodGet, "/api/v1/users/1/2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var page user.Page
	decodeBody(t, w, &page)
	if len(page.Content) != 2 || page.Page != 1 || page.Size != 2 {
		t.Errorf("page = %+v", page)
	}
	if page.Content[0].Name != "User 02" {
		t.Errorf("first item = %q, want User 02", page.Content[0].Name)
	}
}

// ─── Search ────────────────────────────────────────────────────────

func TestSearchUsers(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	doJSON(t, router, http.MethodPost, "/api/v1/users", kajsaJSON)
	doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"name":"Kalle Anka","address":"Vägen 31, 67422 Staden","email":"kalle@acme.org","telephone":"070-0702200"}`)
	doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"name":"Anna Berg","address":"Storgatan 5, Uppsala","email":"anna@example.org","telephone":"072-5551234"}`)

	w := doJSON(t, router, http.MethodGet, "/api/v1/users/0/10/search/ANKA", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var page user.Page
	decodeBody(t, w, &page)
	if page.TotalElements != 2 || len(page.Content) != 2 {
		t.Fatalf("expected 2 matches, got %+v", page)
	}

	// No matches is an empty page, not a 404.
	w = doJSON(t, router, http.MethodGet, "/api/v1/users/0/10/search/zebra", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	decodeBody(t, w, &page)
	if page.TotalElements != 0 || len(page.Content) != 0 {
		t.Errorf("expected empty page, got %+v", page)
	}
}

func TestSearchUsers_SQLiteBackend(t *testing.T) {
	srv, _ := testServerWith(t, sqliteRepo(t))
	router := srv.buildRouter()

	doJSON(t, router, http.MethodPost, "/api/v1/users", kajsaJSON)
	doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"name":"Anna Berg","address":"Storgatan 5, Uppsala","email":"anna@example.org","telephone":"072-5551234"}`)

	w := doJSON(t, router, http.MethodGet, "/api/v1/users/0/10/search/staden", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var page user.Page
	decodeBody(t, w, &page)
	if page.TotalElements != 1 || page.Content[0].Name != "Kajsa Anka" {
		t.Errorf("page = %+v", page)
	}
}
