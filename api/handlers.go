package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"minim/models"
	"minim/store"
)

// identityCookie carries the self-asserted username bound at login.
// No authentication: usernames are taken at face value.
const identityCookie = "minim_user"

type loginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=50"`
}

type searchRequest struct {
	Query string `json:"query" validate:"required"`
}

type addContactRequest struct {
	Username string `json:"username" validate:"required"`
}

type historyRequest struct {
	Partner string `json:"partner" validate:"required"`
}

type historyEntry struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// login creates or fetches the user and binds the caller's identity for
// subsequent calls.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := s.store.CreateOrGetUser(req.Username)
	if err != nil {
		s.log.Error("login failed", zap.String("username", req.Username), zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     identityCookie,
		Value:    user.Username,
		Path:     "/",
		HttpOnly: true,
	})

	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":   "success",
		"username": user.Username,
	})
}

// searchUser returns usernames containing the query, excluding the caller.
func (s *Server) searchUser(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	users, err := s.store.FindUsersMatching(req.Query)
	if err != nil {
		s.log.Error("search failed", zap.String("query", req.Query), zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}

	me, _ := s.currentUser(r)
	names := lo.FilterMap(users, func(u models.User, _ int) (string, bool) {
		return u.Username, u.Username != me
	})

	s.respondJSON(w, http.StatusOK, names)
}

func (s *Server) addContact(w http.ResponseWriter, r *http.Request) {
	var req addContactRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	owner, ok := s.currentUser(r)
	if !ok {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "error"})
		return
	}

	err := s.store.AddContact(owner, req.Username)
	if err != nil {
		// Неизвестный пользователь и дубликат дают одинаковый ответ
		if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrContactExists) {
			s.log.Error("add contact failed",
				zap.String("owner", owner),
				zap.String("contact", req.Username),
				zap.Error(err))
		}
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "error"})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

func (s *Server) getContacts(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.currentUser(r)
	if !ok {
		s.respondJSON(w, http.StatusOK, []string{})
		return
	}

	names, err := s.store.ListContacts(owner)
	if err != nil {
		s.log.Error("list contacts failed", zap.String("owner", owner), zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}

	if names == nil {
		names = []string{}
	}
	s.respondJSON(w, http.StatusOK, names)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	var req historyRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	me, ok := s.currentUser(r)
	if !ok {
		s.respondJSON(w, http.StatusOK, []historyEntry{})
		return
	}

	messages, err := s.store.GetConversation(me, req.Partner)
	if err != nil {
		s.log.Error("get history failed",
			zap.String("me", me),
			zap.String("partner", req.Partner),
			zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}

	entries := lo.Map(messages, func(m models.Message, _ int) historyEntry {
		return historyEntry{Sender: m.Sender, Text: m.Text}
	})

	s.respondJSON(w, http.StatusOK, entries)
}

func (s *Server) currentUser(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(identityCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"status": "error"})
		return false
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"status": "error"})
		return false
	}
	return true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("encode response failed", zap.Error(err))
	}
}
