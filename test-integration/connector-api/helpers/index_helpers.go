package helpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"
)

// FakeIndex is an in-memory document index speaking the HTTP sync protocol
type FakeIndex struct {
	Server *httptest.Server

	mu       sync.Mutex
	docs     map[string]string
	syncJobs int
	open     map[string]bool
	// Reject lists document ids the index refuses to store
	Reject map[string]bool
}

type indexDocument struct {
	ID      string `json:"id"`
	Content struct {
		Blob []byte `json:"blob,omitempty"`
	} `json:"content"`
}

type failedDocument struct {
	ID    string `json:"id"`
	Error struct {
		ErrorCode    string `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"error"`
}

// NewFakeIndex starts an index server
func NewFakeIndex() *FakeIndex {
	idx := &FakeIndex{
		docs:   make(map[string]string),
		open:   make(map[string]bool),
		Reject: make(map[string]bool),
	}

	r := chi.NewRouter()
	r.Post("/indices/{index}/datasources/{source}/syncjobs", idx.startSync)
	r.Post("/indices/{index}/datasources/{source}/syncjobs/{sync}/stop", idx.stopSync)
	r.Post("/indices/{index}/documents", idx.put)
	r.Post("/indices/{index}/documents/delete", idx.delete)
	idx.Server = httptest.NewServer(r)
	return idx
}

// Close stops the server
func (idx *FakeIndex) Close() {
	idx.Server.Close()
}

// Documents returns a copy of the stored document contents by id
func (idx *FakeIndex) Documents() map[string]string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := make(map[string]string, len(idx.docs))
	for k, v := range idx.docs {
		out[k] = v
	}
	return out
}

// OpenSyncJobs counts sync jobs that were started but not stopped
func (idx *FakeIndex) OpenSyncJobs() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.open)
}

func (idx *FakeIndex) startSync(w http.ResponseWriter, _ *http.Request) {
	idx.mu.Lock()
	idx.syncJobs++
	id := fmt.Sprintf("sync-%d", idx.syncJobs)
	idx.open[id] = true
	idx.mu.Unlock()

	writeJSON(w, map[string]string{"executionId": id})
}

func (idx *FakeIndex) stopSync(w http.ResponseWriter, r *http.Request) {
	idx.mu.Lock()
	delete(idx.open, chi.URLParam(r, "sync"))
	idx.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (idx *FakeIndex) put(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Documents []indexDocument `json:"documents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var failed []failedDocument
	idx.mu.Lock()
	for _, d := range req.Documents {
		if idx.Reject[d.ID] {
			f := failedDocument{ID: d.ID}
			f.Error.ErrorCode = "InvalidRequest"
			f.Error.ErrorMessage = "rejected by test"
			failed = append(failed, f)
			continue
		}
		idx.docs[d.ID] = string(d.Content.Blob)
	}
	idx.mu.Unlock()

	writeJSON(w, map[string]any{"failedDocuments": failed})
}

func (idx *FakeIndex) delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Documents []struct {
			ID string `json:"documentId"`
		} `json:"documents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	idx.mu.Lock()
	for _, d := range req.Documents {
		delete(idx.docs, d.ID)
	}
	idx.mu.Unlock()

	writeJSON(w, map[string]any{"failedDocuments": []failedDocument{}})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
