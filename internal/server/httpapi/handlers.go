package httpapi

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/server/auth"
	"github.com/go-chi/chi/v5"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
}

type noteRequest struct {
	Content string `json:"content"`
}

type notesResponse struct {
	Notes []string `json:"notes"`
	Count int      `json:"count"`
}

type fileResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

type auditEntryResponse struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

type idResponse struct {
	ID string `json:"id"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	u, err := s.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{
		ID:        u.ID,
		Username:  u.UserName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	res, err := s.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.setSessionCookie(w, res.Token, res.ExpiresAt)
	writeJSON(w, http.StatusOK, loginResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, UserID: res.User.ID})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Logout(r.Context(), tokenFromRequest(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"user_id": userID})
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	notes, err := s.notes.ListNotes(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notesResponse{Notes: notes, Count: len(notes)})
}

func (s *Server) saveNote(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	id, err := s.notes.SaveNote(r.Context(), userID, req.Content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	files, err := s.files.ListFiles(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, fileResponse{ID: f.ID, Filename: f.Filename, Size: f.Size, CreatedAt: f.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, err)
			return
		}
		badRequest(w, "expected multipart form with a file field")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	part, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "missing file field")
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	id, err := s.files.SaveFile(r.Context(), userID, header.Filename, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	name, data, err := s.files.FetchFileForOwner(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": name})
	if disposition == "" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	entries, err := s.audit.List(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{Action: e.Action, Timestamp: e.Timestamp})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}
