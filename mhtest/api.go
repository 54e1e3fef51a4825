package mhtest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ptgott/mhcheck/mailhog"
)

// apiHandler serves the subset of the MailHog API this module calls.
type apiHandler struct {
	store    *Store
	username string
	password string
}

func (h *apiHandler) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/messages", h.messages)
	mux.HandleFunc("/api/v2/search", h.search)
	mux.HandleFunc("/api/v1/messages", h.deleteAll)
	mux.HandleFunc("/api/v2/jim", h.jim)
	return h.guard(mux)
}

// guard applies basic auth and injected failures ahead of every route.
func (h *apiHandler) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if h.username != "" {
			u, p, ok := req.BasicAuth()
			if !ok || u != h.username || p != h.password {
				rw.Header().Set("WWW-Authenticate", `Basic realm="MailHog"`)
				http.Error(rw, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		if h.store.shouldFail() {
			http.Error(rw, "injected failure", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(rw, req)
	})
}

func (h *apiHandler) messages(rw http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writePage(rw, req, h.store.Messages())
}

func (h *apiHandler) search(rw http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	kind := mailhog.SearchKind(req.URL.Query().Get("kind"))
	if err := kind.Validate(); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	writePage(rw, req, h.store.Search(kind, req.URL.Query().Get("query")))
}

func (h *apiHandler) deleteAll(rw http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodDelete {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.store.DeleteAll()
	rw.WriteHeader(http.StatusOK)
}

func (h *apiHandler) jim(rw http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		if !h.store.Jim() {
			http.NotFound(rw, req)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		rw.Write([]byte(`{"DisconnectChance":0.005}`))
	case http.MethodPost:
		h.store.SetJim(true)
		rw.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		h.store.SetJim(false)
		rw.WriteHeader(http.StatusOK)
	default:
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// writePage slices ms by the start and limit query parameters (MailHog's
// default limit is 50) and writes the v2 list envelope.
func writePage(rw http.ResponseWriter, req *http.Request, ms []mailhog.Message) {
	start := queryInt(req, "start", 0)
	limit := queryInt(req, "limit", 50)

	if start > len(ms) {
		start = len(ms)
	}
	end := start + limit
	if end > len(ms) {
		end = len(ms)
	}
	items := ms[start:end]

	rw.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(rw).Encode(mailhog.Messages{
		Total: len(ms),
		Count: len(items),
		Start: start,
		Items: items,
	})
	if err != nil {
		// This is an error with the test server, not the caller
		panic("can't encode the messages response: " + err.Error())
	}
}

func queryInt(req *http.Request, key string, def int) int {
	v := req.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
