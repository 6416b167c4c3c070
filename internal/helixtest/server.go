// Package helixtest provides an in-process stand-in for the Twitch identity
// provider and the Helix API, for tests that drive the real client stack.
package helixtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"streamscout/pkg/helix"
)

// Credentials accepted by a new Server
const (
	ClientID     = "test-client-id"
	ClientSecret = "test-client-secret"
)

// Server simulates the token endpoint and the Helix endpoints the collector
// uses. Data is served from memory and paginated with numeric cursors.
type Server struct {
	server *httptest.Server

	mu             sync.RWMutex
	streams        []helix.Stream
	channels       []helix.Channel
	users          map[string]helix.User
	games          []helix.Game
	errorResponses map[string]int
	throttle       int
	revoke         bool
	tokenSeq       int
	token          string
	expiresIn      int

	requestCount  atomic.Int32
	tokenRequests atomic.Int32
	throttled     atomic.Int32
	paths         sync.Map
}

// NewServer starts a server. Call Close when done.
func NewServer() *Server {
	s := &Server{
		users:          make(map[string]helix.User),
		errorResponses: make(map[string]int),
		expiresIn:      3600,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", s.handleToken)
	mux.HandleFunc("/helix/", s.handleHelix)

	s.server = httptest.NewServer(mux)
	return s
}

// APIBaseURL is the Helix root to configure the client with
func (s *Server) APIBaseURL() string { return s.server.URL + "/helix" }

// TokenURL is the OAuth token endpoint
func (s *Server) TokenURL() string { return s.server.URL + "/oauth2/token" }

// Client returns an HTTP client for the server
func (s *Server) Client() *http.Client { return s.server.Client() }

// Close shuts down the server
func (s *Server) Close() { s.server.Close() }

// AddStreams appends live streams in the order /streams returns them
func (s *Server) AddStreams(streams ...helix.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams = append(s.streams, streams...)
}

// AddChannels appends /search/channels results
func (s *Server) AddChannels(channels ...helix.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = append(s.channels, channels...)
}

// AddUsers registers /users profiles
func (s *Server) AddUsers(users ...helix.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		s.users[u.ID] = u
	}
}

// AddGames registers categories for /games and /search/categories
func (s *Server) AddGames(games ...helix.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games = append(s.games, games...)
}

// SetErrorResponse makes a Helix path such as "/users" answer with code
func (s *Server) SetErrorResponse(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorResponses[path] = code
}

// ClearErrorResponse removes an injected error
func (s *Server) ClearErrorResponse(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.errorResponses, path)
}

// ThrottleNext answers the next n Helix requests with 429 and a zero
// Ratelimit-Reset.
func (s *Server) ThrottleNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttle = n
}

// RevokeToken makes the current token invalid so the next Helix request
// gets a 401 and the client has to fetch a new one.
func (s *Server) RevokeToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoke = true
}

// SetExpiresIn sets the lifetime reported for new tokens, in seconds
func (s *Server) SetExpiresIn(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresIn = seconds
}

// RequestCount is the number of Helix requests received
func (s *Server) RequestCount() int { return int(s.requestCount.Load()) }

// TokenRequests is the number of token exchanges received
func (s *Server) TokenRequests() int { return int(s.tokenRequests.Load()) }

// ThrottledCount is the number of 429 responses sent
func (s *Server) ThrottledCount() int { return int(s.throttled.Load()) }

// PathCount is the number of requests received for a Helix path
func (s *Server) PathCount(path string) int {
	if v, ok := s.paths.Load(path); ok {
		return int(v.(*atomic.Int32).Load())
	}
	return 0
}

// handleToken implements the client-credentials grant
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.tokenRequests.Add(1)

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	id, secret, ok := r.BasicAuth()
	if !ok {
		id, secret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	}
	if r.PostForm.Get("grant_type") != "client_credentials" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": 400, "message": "unsupported grant type"})
		return
	}
	if id != ClientID || secret != ClientSecret {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"status": 403, "message": "invalid client secret"})
		return
	}

	s.mu.Lock()
	s.tokenSeq++
	s.token = fmt.Sprintf("app-token-%d", s.tokenSeq)
	token, expiresIn := s.token, s.expiresIn
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"expires_in":   expiresIn,
		"token_type":   "bearer",
	})
}

// handleHelix authenticates the request, applies injected failures and
// dispatches to the endpoint
func (s *Server) handleHelix(w http.ResponseWriter, r *http.Request) {
	s.requestCount.Add(1)
	path := strings.TrimPrefix(r.URL.Path, "/helix")
	counter, _ := s.paths.LoadOrStore(path, &atomic.Int32{})
	counter.(*atomic.Int32).Add(1)

	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"status": 401, "message": "Invalid OAuth token"})
		return
	}

	s.mu.Lock()
	code := s.errorResponses[path]
	throttle := s.throttle > 0
	if throttle {
		s.throttle--
	}
	s.mu.Unlock()

	if throttle {
		s.throttled.Add(1)
		w.Header().Set("Ratelimit-Limit", "800")
		w.Header().Set("Ratelimit-Remaining", "0")
		w.Header().Set("Ratelimit-Reset", "0")
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{"status": 429, "message": "Too Many Requests"})
		return
	}
	if code > 0 {
		writeJSON(w, code, map[string]interface{}{"status": code, "message": http.StatusText(code)})
		return
	}

	q := r.URL.Query()
	switch path {
	case helix.StreamsPath:
		s.serveStreams(w, q)
	case helix.SearchChannelsPath:
		s.serveChannels(w, q)
	case helix.UsersPath:
		s.serveUsers(w, q)
	case helix.GamesPath:
		s.serveGames(w, q)
	case helix.SearchCategoriesPath:
		s.serveCategories(w, q)
	default:
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"status": 404, "message": "Not Found"})
	}
}

func (s *Server) authorized(r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Header.Get("Client-Id") != ClientID || s.token == "" {
		return false
	}
	if s.revoke {
		s.revoke = false
		s.token = ""
		return false
	}
	return r.Header.Get("Authorization") == "Bearer "+s.token
}

func (s *Server) serveStreams(w http.ResponseWriter, q map[string][]string) {
	s.mu.RLock()
	var matched []helix.Stream
	for _, st := range s.streams {
		if id := first(q, "game_id"); id != "" && st.GameID != id {
			continue
		}
		if lang := first(q, "language"); lang != "" && !strings.EqualFold(st.Language, lang) {
			continue
		}
		matched = append(matched, st)
	}
	s.mu.RUnlock()

	writePage(w, matched, q)
}

func (s *Server) serveChannels(w http.ResponseWriter, q map[string][]string) {
	query := strings.ToLower(first(q, "query"))
	liveOnly := first(q, "live_only") == "true"

	s.mu.RLock()
	var matched []helix.Channel
	for _, ch := range s.channels {
		if liveOnly && !ch.IsLive {
			continue
		}
		haystack := strings.ToLower(ch.BroadcasterLogin + " " + ch.DisplayName + " " + ch.GameName + " " + ch.GameID + " " + ch.Title)
		if query != "" && !strings.Contains(haystack, query) {
			continue
		}
		matched = append(matched, ch)
	}
	s.mu.RUnlock()

	writePage(w, matched, q)
}

func (s *Server) serveUsers(w http.ResponseWriter, q map[string][]string) {
	ids := q["id"]
	if len(ids) > helix.MaxIDsPerLookup {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": 400, "message": "too many ids"})
		return
	}

	s.mu.RLock()
	users := make([]helix.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, u)
		}
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, helix.Response[helix.User]{Data: users})
}

func (s *Server) serveGames(w http.ResponseWriter, q map[string][]string) {
	names := q["name"]

	s.mu.RLock()
	games := []helix.Game{}
	for _, g := range s.games {
		if slices.ContainsFunc(names, func(n string) bool { return strings.EqualFold(n, g.Name) }) {
			games = append(games, g)
		}
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, helix.Response[helix.Game]{Data: games})
}

func (s *Server) serveCategories(w http.ResponseWriter, q map[string][]string) {
	query := strings.ToLower(first(q, "query"))

	s.mu.RLock()
	var matched []helix.Game
	for _, g := range s.games {
		if strings.Contains(strings.ToLower(g.Name), query) {
			matched = append(matched, g)
		}
	}
	s.mu.RUnlock()

	writePage(w, matched, q)
}

// writePage serves items[after:after+first] with a numeric cursor
func writePage[T any](w http.ResponseWriter, items []T, q map[string][]string) {
	size := 20
	if n, err := strconv.Atoi(first(q, "first")); err == nil && n > 0 {
		size = min(n, helix.MaxPageSize)
	}
	start := 0
	if after := first(q, "after"); after != "" {
		n, err := strconv.Atoi(after)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": 400, "message": "bad cursor"})
			return
		}
		start = min(n, len(items))
	}
	end := min(start+size, len(items))

	resp := helix.Response[T]{Data: items[start:end]}
	if resp.Data == nil {
		resp.Data = []T{}
	}
	if end < len(items) {
		resp.Pagination.Cursor = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, resp)
}

func first(q map[string][]string, key string) string {
	if v := q[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
