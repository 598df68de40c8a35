package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/openlegis/billchat/internal/bills"
)

// handleBillPDF serves a bill's PDF, downloading it into the data
// directory on first request and serving the cached copy after that.
func (s *Server) handleBillPDF(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b, err := s.deps.Store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, bills.ErrNotFound) {
			http.Error(w, "bill not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(b.PDFLinks) == 0 {
		http.Error(w, "bill has no PDF", http.StatusNotFound)
		return
	}

	path := s.pdfCachePath(key)
	if _, err := os.Stat(path); err != nil {
		data, err := s.deps.Fetcher.FetchBytes(r.Context(), b.PDFLinks[0])
		if err != nil {
			http.Error(w, "failed to download PDF", http.StatusBadGateway)
			return
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, path)
}

// pdfCachePath mirrors the bin/{congress}/{type}/{number} layout of
// the downloaded bill archive.
func (s *Server) pdfCachePath(key bills.Key) string {
	return filepath.Join(s.cfg.DataDir, "bin",
		strconv.Itoa(key.Congress), strings.ToLower(key.Type), key.Number, "bill.pdf")
}
