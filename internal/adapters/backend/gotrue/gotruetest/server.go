// Package gotruetest runs an in-memory GoTrue and PostgREST stand-in for
// tests.
package gotruetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AnonKey       = "anon-test-key"
	signingSecret = "gotruetest-signing-secret"
)

type Profile struct {
	DisplayName string  `json:"display_name"`
	AvatarURL   string  `json:"avatar_url"`
	HeightCM    float64 `json:"height_cm"`
	WeightKG    float64 `json:"weight_kg"`
	Goal        string  `json:"goal"`
}

type user struct {
	id       string
	email    string
	password string
}

// grant ties an issued token to its user and to the login session it belongs
// to. Refreshing keeps the session; logout revokes all of it.
type grant struct {
	userID    string
	sessionID string
}

type Server struct {
	*httptest.Server

	// AutoConfirm hands out a session on signup. When false, signup answers
	// with the bare user as a project with email confirmation does.
	AutoConfirm bool
	AccessTTL   time.Duration
	Now         func() time.Time

	mu       sync.Mutex
	users    map[string]*user
	access   map[string]grant
	refresh  map[string]grant
	profiles map[string]Profile
	calls    map[string]int
	failures map[string]int
}

func NewServer() *Server {
	s := &Server{
		AutoConfirm: true,
		AccessTTL:   time.Hour,
		Now:         time.Now,
		users:       map[string]*user{},
		access:      map[string]grant{},
		refresh:     map[string]grant{},
		profiles:    map[string]Profile{},
		calls:       map[string]int{},
		failures:    map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", s.handleToken)
	mux.HandleFunc("/auth/v1/signup", s.handleSignup)
	mux.HandleFunc("/auth/v1/user", s.handleUser)
	mux.HandleFunc("/auth/v1/logout", s.handleLogout)
	mux.HandleFunc("/rest/v1/profiles", s.handleProfiles)
	s.Server = httptest.NewServer(s.guard(mux))

	return s
}

// AddUser registers a confirmed user and returns its id.
func (s *Server) AddUser(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addUserLocked(email, password).id
}

func (s *Server) SetProfile(userID string, profile Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[userID] = profile
}

// RevokeSessions invalidates every token issued to userID.
func (s *Server) RevokeSessions(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revokeLocked(func(g grant) bool { return g.userID == userID })
}

// FailNext makes the next n requests to path answer with a 500.
func (s *Server) FailNext(path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[path] += n
}

// Calls counts requests by "METHOD path?grant_type" key, e.g.
// "POST /auth/v1/token?refresh_token".
func (s *Server) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[key]
}

func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		if grant := r.URL.Query().Get("grant_type"); grant != "" {
			key += "?" + grant
		}

		s.mu.Lock()
		s.calls[key]++
		fail := s.failures[r.URL.Path] > 0
		if fail {
			s.failures[r.URL.Path]--
		}
		s.mu.Unlock()

		if r.Header.Get("apikey") != AnonKey {
			writeError(w, http.StatusUnauthorized, "no_api_key", "No API key found in request")
			return
		}
		if fail {
			writeError(w, http.StatusInternalServerError, "unexpected_failure", "injected failure")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Query().Get("grant_type") {
	case "password":
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json", err.Error())
			return
		}

		s.mu.Lock()
		u, ok := s.users[strings.ToLower(body.Email)]
		if !ok || u.password != body.Password {
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
			return
		}
		payload := s.issueLocked(u, uuid.NewString())
		s.mu.Unlock()

		writeJSON(w, http.StatusOK, payload)
	case "refresh_token":
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json", err.Error())
			return
		}

		s.mu.Lock()
		g, ok := s.refresh[body.RefreshToken]
		if !ok {
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, "refresh_token_not_found", "Invalid Refresh Token: Refresh Token Not Found")
			return
		}
		delete(s.refresh, body.RefreshToken)
		payload := s.issueLocked(s.userByIDLocked(g.userID), g.sessionID)
		s.mu.Unlock()

		writeJSON(w, http.StatusOK, payload)
	default:
		writeError(w, http.StatusBadRequest, "unsupported_grant_type", "unsupported grant type")
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[strings.ToLower(body.Email)]; exists {
		writeError(w, http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
		return
	}

	u := s.addUserLocked(body.Email, body.Password)
	if !s.AutoConfirm {
		writeJSON(w, http.StatusOK, map[string]any{"id": u.id, "email": u.email})
		return
	}

	writeJSON(w, http.StatusOK, s.issueLocked(u, uuid.NewString()))
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.bearerUserLocked(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "bad_jwt", "invalid JWT")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": u.id, "email": u.email})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.access[bearerToken(r)]
	if !ok {
		writeError(w, http.StatusUnauthorized, "bad_jwt", "invalid JWT")
		return
	}
	// scope=local ends the login session the access token belongs to,
	// refresh tokens included.
	s.revokeLocked(func(other grant) bool { return other.sessionID == g.sessionID })

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := []map[string]any{}
	if profile, ok := s.profiles[id]; ok {
		rows = append(rows, map[string]any{
			"id":           id,
			"display_name": profile.DisplayName,
			"avatar_url":   profile.AvatarURL,
			"height_cm":    profile.HeightCM,
			"weight_kg":    profile.WeightKG,
			"goal":         profile.Goal,
		})
	}

	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) addUserLocked(email, password string) *user {
	u := &user{id: uuid.NewString(), email: email, password: password}
	s.users[strings.ToLower(email)] = u
	return u
}

func (s *Server) userByIDLocked(id string) *user {
	for _, u := range s.users {
		if u.id == id {
			return u
		}
	}
	return &user{id: id}
}

func (s *Server) bearerUserLocked(r *http.Request) (*user, bool) {
	token := bearerToken(r)
	g, ok := s.access[token]
	if !ok {
		return nil, false
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(signingSecret), nil
	}, jwt.WithTimeFunc(s.Now))
	if err != nil {
		return nil, false
	}

	return s.userByIDLocked(g.userID), true
}

func (s *Server) revokeLocked(match func(grant) bool) {
	for token, g := range s.access {
		if match(g) {
			delete(s.access, token)
		}
	}
	for token, g := range s.refresh {
		if match(g) {
			delete(s.refresh, token)
		}
	}
}

func (s *Server) issueLocked(u *user, sessionID string) map[string]any {
	now := s.Now()
	expiresAt := now.Add(s.AccessTTL)

	claims := struct {
		Email string `json:"email"`
		jwt.RegisteredClaims
	}{
		Email: u.email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.id,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingSecret))
	if err != nil {
		panic(err)
	}
	refresh := uuid.NewString()

	s.access[access] = grant{userID: u.id, sessionID: sessionID}
	s.refresh[refresh] = grant{userID: u.id, sessionID: sessionID}

	return map[string]any{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    int64(s.AccessTTL / time.Second),
		"expires_at":    expiresAt.Unix(),
		"refresh_token": refresh,
		"user":          map[string]any{"id": u.id, "email": u.email},
	}
}

func bearerToken(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{"code": status, "error_code": code, "msg": msg})
}
