// Package igtest provides a fake Instagram web API for tests.
package igtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"igunfollow/pkg/instagram"
)

// Request is one unfollow call received by the fake
type Request struct {
	Method   string
	Username string
	Header   http.Header
	BodyLen  int64
}

// Server simulates the unfollow and friendship listing endpoints
type Server struct {
	server *httptest.Server

	mu          sync.Mutex
	requests    []Request
	scripted    map[string][]int
	friendships map[instagram.FriendshipKind][]instagram.FriendshipUser
	pageSize    int
	pageStatus  map[int]int
	pageHits    int
}

// NewServer starts a fake that answers 200 to every unfollow
func NewServer() *Server {
	s := &Server{
		scripted:    make(map[string][]int),
		friendships: make(map[instagram.FriendshipKind][]instagram.FriendshipUser),
		pageSize:    instagram.FriendshipsPageSize,
		pageStatus:  make(map[int]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/web/friendships/{username}/unfollow/", s.handleUnfollow)
	mux.HandleFunc("GET /api/v1/friendships/{id}/{kind}/", s.handleFriendships)

	s.server = httptest.NewServer(mux)
	return s
}

// URL is the base URL to use as both web and API base
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts the fake down
func (s *Server) Close() {
	s.server.Close()
}

// Script queues status codes returned for username, one per request.
// Once the queue is drained the fake answers 200.
func (s *Server) Script(username string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripted[username] = append(s.scripted[username], statuses...)
}

// Requests returns every unfollow request received, in arrival order
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Usernames returns the usernames of all unfollow requests, in arrival order
func (s *Server) Usernames() []string {
	var names []string
	for _, r := range s.Requests() {
		names = append(names, r.Username)
	}
	return names
}

// SetFriendships sets the accounts listed for kind, served pageSize at a time
func (s *Server) SetFriendships(kind instagram.FriendshipKind, users []instagram.FriendshipUser, pageSize int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friendships[kind] = users
	if pageSize > 0 {
		s.pageSize = pageSize
	}
}

// FailPage makes the nth friendship page request (zero based) answer status
func (s *Server) FailPage(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageStatus[n] = status
}

// PageHits returns how many friendship pages were requested
func (s *Server) PageHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageHits
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:   r.Method,
		Username: username,
		Header:   r.Header.Clone(),
		BodyLen:  r.ContentLength,
	})
	status := http.StatusOK
	if queue := s.scripted[username]; len(queue) > 0 {
		status = queue[0]
		s.scripted[username] = queue[1:]
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status == http.StatusOK {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"message": http.StatusText(status),
		"status":  "fail",
	})
}

func (s *Server) handleFriendships(w http.ResponseWriter, r *http.Request) {
	kind := instagram.FriendshipKind(r.PathValue("kind"))
	start, _ := strconv.Atoi(r.URL.Query().Get("max_id"))

	s.mu.Lock()
	hit := s.pageHits
	s.pageHits++
	status, failing := s.pageStatus[hit]
	users := s.friendships[kind]
	pageSize := s.pageSize
	s.mu.Unlock()

	if failing {
		w.WriteHeader(status)
		return
	}

	end := start + pageSize
	if end > len(users) {
		end = len(users)
	}
	if start > end {
		start = end
	}

	page := map[string]interface{}{
		"users":  users[start:end],
		"status": "ok",
	}
	if end < len(users) {
		// Numeric cursors exercise the string-or-number decoding
		page["next_max_id"] = end
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(page)
}
