// Package preview hands out revocable local URLs for the selected video so
// the front end can render it without reading the file itself.
package preview

import (
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"upload-ai/internal/domain"
)

// Prefix is the URL path under which previews are served.
const Prefix = "/preview/"

// Registry maps live preview URLs to video files.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]domain.VideoFile
	newID   func() string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]domain.VideoFile),
		newID:   uuid.NewString,
	}
}

// Create registers video and returns its preview URL.
func (r *Registry) Create(video domain.VideoFile) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	token := r.newID()
	r.entries[token] = video
	return Prefix + token
}

// Revoke releases url. Unknown or empty URLs are ignored.
func (r *Registry) Revoke(url string) {
	token, ok := tokenFrom(url)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, token)
}

// RevokeAll releases every live URL.
func (r *Registry) RevokeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]domain.VideoFile)
}

// Len returns the number of live URLs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Lookup returns the video behind a live URL.
func (r *Registry) Lookup(url string) (domain.VideoFile, bool) {
	token, ok := tokenFrom(url)
	if !ok {
		return domain.VideoFile{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	video, ok := r.entries[token]
	return video, ok
}

// ServeHTTP streams the video behind a live preview URL, honoring range
// requests. Revoked URLs get 404.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	video, ok := r.Lookup(req.URL.Path)
	if !ok {
		http.NotFound(w, req)
		return
	}

	file, err := os.Open(video.Path)
	if err != nil {
		http.NotFound(w, req)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		http.Error(w, "stat preview", http.StatusInternalServerError)
		return
	}
	if video.MIMEType != "" {
		w.Header().Set("Content-Type", video.MIMEType)
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, req, video.Name, info.ModTime(), file)
}

func tokenFrom(url string) (string, bool) {
	token, ok := strings.CutPrefix(url, Prefix)
	if !ok || token == "" || strings.Contains(token, "/") {
		return "", false
	}
	return token, true
}
