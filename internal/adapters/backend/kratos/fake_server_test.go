package kratos

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeIdentity struct {
	id       string
	password string
	traits   map[string]interface{}
}

// fakeKratos implements the handful of public and admin endpoints the
// adapter calls.
type fakeKratos struct {
	*httptest.Server

	mu            sync.Mutex
	now           time.Time
	identities    map[string]*fakeIdentity
	sessions      map[string]string
	requireVerify bool
	logouts       int
	whoamis       int
	rateLimitNext bool
}

func newFakeKratos(t *testing.T) *fakeKratos {
	t.Helper()

	f := &fakeKratos{
		now:        time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		identities: map[string]*fakeIdentity{},
		sessions:   map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/self-service/login/api", f.handleCreateFlow("login"))
	mux.HandleFunc("/self-service/registration/api", f.handleCreateFlow("registration"))
	mux.HandleFunc("/self-service/login", f.handleLogin)
	mux.HandleFunc("/self-service/registration", f.handleRegistration)
	mux.HandleFunc("/sessions/whoami", f.handleWhoami)
	mux.HandleFunc("/self-service/logout/api", f.handleLogout)
	mux.HandleFunc("/admin/identities/", f.handleGetIdentity)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)

	return f
}

func (f *fakeKratos) addIdentity(email, password string, traits map[string]interface{}) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.addIdentityLocked(email, password, traits).id
}

func (f *fakeKratos) addIdentityLocked(email, password string, traits map[string]interface{}) *fakeIdentity {
	all := map[string]interface{}{"email": email}
	for key, value := range traits {
		all[key] = value
	}
	identity := &fakeIdentity{id: uuid.NewString(), password: password, traits: all}
	f.identities[strings.ToLower(email)] = identity
	return identity
}

func (f *fakeKratos) revokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sessions = map[string]string{}
}

func (f *fakeKratos) handleCreateFlow(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		limited := f.rateLimitNext
		f.rateLimitNext = false
		f.mu.Unlock()
		if limited {
			writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{"error": map[string]interface{}{"code": 429, "message": "slow down"}})
			return
		}

		writeJSON(w, http.StatusOK, f.flowPayload(kind, "flow-"+kind, nil))
	}
}

func (f *fakeKratos) flowPayload(kind, id string, messages []map[string]interface{}) map[string]interface{} {
	ui := map[string]interface{}{
		"action": f.URL + "/self-service/" + kind + "?flow=" + id,
		"method": "POST",
		"nodes":  []interface{}{},
	}
	if messages != nil {
		ui["messages"] = messages
	}

	return map[string]interface{}{
		"id":          id,
		"type":        "api",
		"state":       "choose_method",
		"expires_at":  f.now.Add(time.Hour).Format(time.RFC3339),
		"issued_at":   f.now.Format(time.RFC3339),
		"request_url": f.URL + "/self-service/" + kind + "/api",
		"ui":          ui,
	}
}

func (f *fakeKratos) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
		Method     string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Method != "password" {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	identity, ok := f.identities[strings.ToLower(body.Identifier)]
	if !ok || identity.password != body.Password {
		writeJSON(w, http.StatusBadRequest, f.flowPayload("login", r.URL.Query().Get("flow"), []map[string]interface{}{
			{"id": 4000006, "text": "The provided credentials are invalid.", "type": "error"},
		}))
		return
	}

	token, session := f.issueLocked(identity)
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session, "session_token": token})
}

func (f *fakeKratos) handleRegistration(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string                 `json:"password"`
		Method   string                 `json:"method"`
		Traits   map[string]interface{} `json:"traits"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Method != "password" {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	email, _ := body.Traits["email"].(string)

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.identities[strings.ToLower(email)]; exists {
		writeJSON(w, http.StatusBadRequest, f.flowPayload("registration", r.URL.Query().Get("flow"), []map[string]interface{}{
			{"id": 4000007, "text": "An account with the same identifier exists already.", "type": "error"},
		}))
		return
	}

	identity := f.addIdentityLocked(email, body.Password, nil)
	if f.requireVerify {
		writeJSON(w, http.StatusOK, map[string]interface{}{"identity": identityPayload(identity, f.URL)})
		return
	}

	token, session := f.issueLocked(identity)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"identity":      identityPayload(identity, f.URL),
		"session":       session,
		"session_token": token,
	})
}

func (f *fakeKratos) handleWhoami(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.whoamis++
	owner, ok := f.sessions[r.Header.Get("X-Session-Token")]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"error": map[string]interface{}{"code": 401, "status": "Unauthorized", "message": "No valid session credentials found in the request."}})
		return
	}

	writeJSON(w, http.StatusOK, f.sessionPayloadLocked(f.identityByIDLocked(owner)))
}

func (f *fakeKratos) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionToken string `json:"session_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.logouts++
	delete(f.sessions, body.SessionToken)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeKratos) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/admin/identities/")

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, identity := range f.identities {
		if identity.id == id {
			writeJSON(w, http.StatusOK, identityPayload(identity, f.URL))
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": map[string]interface{}{"code": 404, "message": "Unable to locate the resource"}})
}

func (f *fakeKratos) issueLocked(identity *fakeIdentity) (string, map[string]interface{}) {
	token := "ory_st_" + uuid.NewString()
	f.sessions[token] = identity.id
	return token, f.sessionPayloadLocked(identity)
}

func (f *fakeKratos) sessionPayloadLocked(identity *fakeIdentity) map[string]interface{} {
	return map[string]interface{}{
		"id":         uuid.NewString(),
		"active":     true,
		"expires_at": f.now.Add(24 * time.Hour).Format(time.RFC3339),
		"identity":   identityPayload(identity, f.URL),
	}
}

func (f *fakeKratos) identityByIDLocked(id string) *fakeIdentity {
	for _, identity := range f.identities {
		if identity.id == id {
			return identity
		}
	}
	return &fakeIdentity{id: id, traits: map[string]interface{}{}}
}

func identityPayload(identity *fakeIdentity, baseURL string) map[string]interface{} {
	return map[string]interface{}{
		"id":         identity.id,
		"schema_id":  "default",
		"schema_url": baseURL + "/schemas/default",
		"traits":     identity.traits,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
