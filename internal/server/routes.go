package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openlegis/billchat/internal/bills"
	"github.com/openlegis/billchat/internal/chat"
	"github.com/openlegis/billchat/internal/indexer"
	"github.com/openlegis/billchat/internal/llm"
)

// billResponse is the wire form of a bill record.
type billResponse struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary,omitempty"`
	Status   string   `json:"status"`
	Type     string   `json:"type"`
	Congress int      `json:"congress"`
	PDFLinks []string `json:"pdf_links,omitempty"`
	TextLink string   `json:"text_link,omitempty"`
	HasText  bool     `json:"has_text"`
}

func toBillResponse(b bills.Bill) billResponse {
	return billResponse{
		ID:       b.Key.Number,
		Title:    b.Title,
		Summary:  b.Summary,
		Status:   b.Status,
		Type:     b.Key.Type,
		Congress: b.Key.Congress,
		PDFLinks: b.PDFLinks,
		TextLink: b.TextLink,
		HasText:  b.HasText,
	}
}

func toBillResponses(list []bills.Bill) []billResponse {
	out := make([]billResponse, len(list))
	for i, b := range list {
		out[i] = toBillResponse(b)
	}
	return out
}

// parseKey extracts the bill key from URL parameters.
func parseKey(r *http.Request) (bills.Key, error) {
	congress, err := strconv.Atoi(chi.URLParam(r, "congress"))
	if err != nil {
		return bills.Key{}, errors.New("congress must be a number")
	}
	return bills.NewKey(congress, chi.URLParam(r, "type"), chi.URLParam(r, "number")), nil
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sortBy := q.Get("sort_by")
	if sortBy == "" {
		sortBy = "title"
	}
	order := q.Get("order")
	if order == "" {
		order = "asc"
	}

	list, err := s.deps.Store.List(r.Context(), sortBy, order, 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toBillResponses(list))
}

// handleTrendingBills lists the most recently updated bills.
func (s *Server) handleTrendingBills(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Store.List(r.Context(), "update_date", "desc", 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toBillResponses(list))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		http.Error(w, "query parameter is required", http.StatusBadRequest)
		return
	}

	list, err := s.deps.Store.SearchTitle(r.Context(), query, 20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toBillResponses(list))
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, toBillResponse(*b))
}

type summaryResponse struct {
	BillID  string `json:"bill_id"`
	Summary string `json:"summary"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := s.deps.Summaries.Summary(r.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, bills.ErrNotFound):
			http.Error(w, "bill not found", http.StatusNotFound)
		case errors.Is(err, chat.ErrNoTextSource):
			http.Error(w, "bill text link not found", http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{BillID: key.Number, Summary: summary})
}

func (s *Server) handleVectorize(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.deps.Indexer.EnsureIndexed(r.Context(), key); err != nil {
		switch {
		case errors.Is(err, bills.ErrNotFound):
			http.Error(w, "bill not found", http.StatusNotFound)
		case errors.Is(err, indexer.ErrMissingSource):
			http.Error(w, "bill text link not found", http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Bill vectorized successfully"})
}

type chatRequest struct {
	Message   string `json:"message"`
	Congress  int    `json:"congress,omitempty"`
	BillType  string `json:"bill_type,omitempty"`
	BillID    string `json:"bill_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Message   string `json:"message"`
	Context   string `json:"context,omitempty"`
	SessionID string `json:"session_id"`
}

// handleChat answers a question, scoped to one bill when the request
// names one. Conversations continue across requests via session_id.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	var key *bills.Key
	if req.BillID != "" {
		if req.Congress == 0 || req.BillType == "" {
			http.Error(w, "congress and bill_type are required with bill_id", http.StatusBadRequest)
			return
		}
		k := bills.NewKey(req.Congress, req.BillType, req.BillID)
		key = &k
	}

	var history []llm.Message
	sessionID := req.SessionID
	if sessionID == "" {
		id, err := s.deps.Sessions.Create(ctx, key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		sessionID = id
	} else {
		sessionKey, err := s.deps.Sessions.Bill(ctx, sessionID)
		if err != nil {
			if errors.Is(err, chat.ErrSessionNotFound) {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if key == nil {
			key = sessionKey
		}
		history, err = s.deps.Sessions.History(ctx, sessionID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	answer, err := s.deps.Chat.Ask(ctx, key, req.Message, history)
	if err != nil {
		switch {
		case errors.Is(err, bills.ErrNotFound):
			http.Error(w, "bill not found", http.StatusNotFound)
		case errors.Is(err, chat.ErrGenerationFailed):
			http.Error(w, "failed to generate answer", http.StatusBadGateway)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if err := s.deps.Sessions.Append(ctx, sessionID, llm.RoleUser, req.Message); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.deps.Sessions.Append(ctx, sessionID, llm.RoleAssistant, answer.Message); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Message:   answer.Message,
		Context:   answer.Context,
		SessionID: sessionID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
