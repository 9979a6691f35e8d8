package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pkarlsen/userdir/internal/notify"
	"github.com/pkarlsen/userdir/internal/user"
)

// userRequest is the submitted form of a user record. ID is only
// honoured by the upsert endpoint; timestamps are always server-assigned.
type userRequest struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
}

// unpagedListLimit bounds the filtered list below; effectively "all rows".
const unpagedListLimit = 1 << 30

// handleListUsers returns every user record. An optional ?query= parameter
// narrows the list with the same substring match the search routes use.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var users []user.User
	var err error
	if q := r.URL.Query().Get("query"); q != "" {
		users, _, err = s.repo.Search(r.Context(), q, 0, unpagedListLimit)
	} else {
		users, err = s.repo.List(r.Context())
	}
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		writeInternalError(w, r, "failed to list users")
		return
	}
	if users == nil {
		users = []user.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// handleListUsersPaginated serves pagination via query parameters
// (?page=&size=).
func (s *Server) handleListUsersPaginated(w http.ResponseWriter, r *http.Request) {
	page, size, ok := parsePaging(w, r, r.URL.Query().Get("page"), r.URL.Query().Get("size"))
	if !ok {
		return
	}
	s.servePage(w, r, page, size)
}

// handleListUsersPagePath serves pagination via path parameters
// (/users/{page}/{size}). The page arrives in the "id" URL param; see
// buildRouter.
func (s *Server) handleListUsersPagePath(w http.ResponseWriter, r *http.Request) {
	page, size, ok := parsePaging(w, r, chi.URLParam(r, "id"), chi.URLParam(r, "size"))
	if !ok {
		return
	}
	s.servePage(w, r, page, size)
}

// servePage fetches one page of users and writes the page envelope.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request, page, size int) {
	users, total, err := s.repo.ListPage(r.Context(), page, size)
	if err != nil {
		s.logger.Error("failed to page users", "error", err)
		writeInternalError(w, r, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, user.NewPage(users, page, size, total))
}

// handleSearchUsers serves the paged substring search
// (/users/{page}/{size}/search/{query}). The page arrives in the "id"
// URL param; see buildRouter.
func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	page, size, ok := parsePaging(w, r, chi.URLParam(r, "id"), chi.URLParam(r, "size"))
	if !ok {
		return
	}
	query := chi.URLParam(r, "query")

	users, total, err := s.repo.Search(r.Context(), query, page, size)
	if err != nil {
		s.logger.Error("failed to search users", "error", err, "query", query)
		writeInternalError(w, r, "failed to search users")
		return
	}
	writeJSON(w, http.StatusOK, user.NewPage(users, page, size, total))
}

// handleGetUser returns a single user by ID.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, r, "invalid user id")
		return
	}

	u, err := s.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			writeNotFound(w, r, "user not found")
			return
		}
		s.logger.Error("failed to get user", "error", err, "id", id)
		writeInternalError(w, r, "failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleUpsertUser creates a new record (no id in the body, 201 with a
// Location header) or updates an existing one (id present, 200).
func (s *Server) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeUser(w, r)
	if !ok {
		return
	}

	if req.ID == 0 {
		s.createUser(w, r, req)
		return
	}
	s.updateUser(w, r, req.ID, req)
}

// handleUpdateUser updates the record addressed by the URL. An id in
// the body is ignored in favour of the path.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, r, "invalid user id")
		return
	}

	req, ok := decodeUser(w, r)
	if !ok {
		return
	}
	s.updateUser(w, r, id, req)
}

// createUser validates and persists a new record, then publishes ADD.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request, req *userRequest) {
	u := &user.User{
		Name:      req.Name,
		Address:   req.Address,
		Email:     req.Email,
		Telephone: req.Telephone,
	}
	if fieldErrs := user.Validate(u); len(fieldErrs) > 0 {
		writeValidationError(w, r, fieldErrs)
		return
	}

	if err := s.repo.Create(r.Context(), u); err != nil {
		if errors.Is(err, user.ErrEmailExists) {
			writeConflict(w, r, "email already exists")
			return
		}
		s.logger.Error("failed to create user", "error", err)
		writeInternalError(w, r, "failed to create user")
		return
	}

	s.notifier.Publish(notify.ChannelUsers, notify.EventAdd, u.ID)

	w.Header().Set("Location", fmt.Sprintf("/api/v1/users/%d", u.ID))
	writeJSON(w, http.StatusCreated, u)
	s.recordMutation(notify.EventAdd)
}

// updateUser validates and overwrites an existing record, then
// publishes EDIT.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request, id int64, req *userRequest) {
	u := &user.User{
		ID:        id,
		Name:      req.Name,
		Address:   req.Address,
		Email:     req.Email,
		Telephone: req.Telephone,
	}
	if fieldErrs := user.Validate(u); len(fieldErrs) > 0 {
		writeValidationError(w, r, fieldErrs)
		return
	}

	if err := s.repo.Update(r.Context(), u); err != nil {
		switch {
		case errors.Is(err, user.ErrUserNotFound):
			writeNotFound(w, r, "user not found")
		case errors.Is(err, user.ErrEmailExists):
			writeConflict(w, r, "email already exists")
		default:
			s.logger.Error("failed to update user", "error", err, "id", id)
			writeInternalError(w, r, "failed to update user")
		}
		return
	}

	s.notifier.Publish(notify.ChannelUsers, notify.EventEdit, id)
	writeJSON(w, http.StatusOK, u)
	s.recordMutation(notify.EventEdit)
}

// handleDeleteUser removes a record and publishes DELETE.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, r, "invalid user id")
		return
	}

	if err := s.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			// Deleting something already gone gets a bare 404, no envelope.
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s.logger.Error("failed to delete user", "error", err, "id", id)
		writeInternalError(w, r, "failed to delete user")
		return
	}

	s.notifier.Publish(notify.ChannelUsers, notify.EventDelete, id)
	w.WriteHeader(http.StatusNoContent)
	s.recordMutation(notify.EventDelete)
}

// decodeUser parses the request body into a userRequest, answering 400
// on malformed JSON.
func decodeUser(w http.ResponseWriter, r *http.Request) (*userRequest, bool) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid request body")
		return nil, false
	}
	return &req, true
}

// parsePaging validates page/size values, answering 400 when either is
// missing, non-numeric, or out of range. Page is zero-based; size must
// be positive.
func parsePaging(w http.ResponseWriter, r *http.Request, pageStr, sizeStr string) (page, size int, ok bool) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 0 {
		writeBadRequest(w, r, "page must be a non-negative integer")
		return 0, 0, false
	}
	size, err = strconv.Atoi(sizeStr)
	if err != nil || size <= 0 {
		writeBadRequest(w, r, "size must be a positive integer")
		return 0, 0, false
	}
	return page, size, true
}

// recordMutation counts a successful mutation in the metrics writer.
func (s *Server) recordMutation(event string) {
	if s.metrics != nil {
		s.metrics.WriteMutation(notify.ChannelUsers, event)
	}
}
