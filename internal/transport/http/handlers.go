package transporthttp

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"proctord/internal/auth"
	"proctord/internal/config"
	"proctord/internal/domain"
	"proctord/internal/ledger"
)

// Store bundles the persistence calls the handlers make outside the
// violation path: login lookups and result submissions.
type Store interface {
	UserByEmail(ctx context.Context, email string) (int64, string, error)
	SaveResult(ctx context.Context, examID int64, res domain.ExamResult) error
}

type ServerDeps struct {
	Cfg    config.Config
	Ledger *ledger.Service
	Store  Store
	Tokens *auth.Tokens
	Ready  func(ctx context.Context) error
}

func decodeJSONStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// --- Health ---

func (d *ServerDeps) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (d *ServerDeps) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if d.Ready != nil {
		if err := d.Ready(r.Context()); err != nil {
			WriteError(w, http.StatusServiceUnavailable, "database not reachable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// --- Events ---

type eventReq struct {
	EventType string `json:"event_type"`
	Details   string `json:"details,omitempty"`
}

// HandleLogEvent is the single entry point of the wire contract: one call
// per reported event, answered with an authoritative action directive.
func (d *ServerDeps) HandleLogEvent(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Invalid request method")
		return
	}
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	userID, ok := claims.CurrentUserID()
	if !ok {
		WriteError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	examID, ok := claims.CurrentExamID()
	if !ok {
		WriteError(w, http.StatusForbidden, "No active exam session")
		return
	}

	var req eventReq
	if err := decodeJSONStrict(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request data")
		return
	}
	eventType, details, errs := domain.ValidateReport(req.EventType, req.Details)
	if len(errs) > 0 {
		WriteError(w, http.StatusBadRequest, "Invalid event type")
		return
	}

	out, err := d.Ledger.Process(r.Context(), userID, examID, eventType, details)
	if err != nil {
		log.Printf("[api] process event failed: user=%d exam=%d type=%s err=%v", userID, examID, eventType, err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	log.Printf("[api] event: user=%d exam=%d type=%s violations=%d action=%s",
		userID, examID, eventType, out.Violations, out.Action)
	WriteData(w, http.StatusOK, out)
}

// --- Login ---

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	ExamID   int64  `json:"exam_id,omitempty"`
}

type loginResp struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
}

// HandleLogin checks credentials and issues an exam token. A token issued
// without an exam id authenticates the user but carries no exam context, so
// event reports with it are rejected.
func (d *ServerDeps) HandleLogin(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Invalid request method")
		return
	}
	var req loginReq
	if err := decodeJSONStrict(r, &req); err != nil || req.Email == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "Invalid request data")
		return
	}

	userID, hash, err := d.Store.UserByEmail(r.Context(), req.Email)
	if err != nil || !auth.CheckPasswordHash(req.Password, hash) {
		WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	token, err := d.Tokens.Issue(userID, req.ExamID)
	if err != nil {
		log.Printf("[api] token issue failed: user=%d err=%v", userID, err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	log.Printf("[api] login: user=%d exam=%d", userID, req.ExamID)
	WriteData(w, http.StatusOK, loginResp{Token: token, UserID: userID})
}

// --- Results ---

type resultReq struct {
	Score          int    `json:"score"`
	TotalQuestions int    `json:"total_questions"`
	TimeTaken      int    `json:"time_taken"`
	Status         string `json:"status"`
}

// HandleSubmitResult stores the final result and closes the open session.
// Forced terminations arrive here with status=cheated and score 0.
func (d *ServerDeps) HandleSubmitResult(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Invalid request method")
		return
	}
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	userID, ok := claims.CurrentUserID()
	if !ok {
		WriteError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	examID, ok := claims.CurrentExamID()
	if !ok {
		WriteError(w, http.StatusForbidden, "No active exam session")
		return
	}

	var req resultReq
	if err := decodeJSONStrict(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request data")
		return
	}
	res := domain.ExamResult{
		UserID:         userID,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
		TimeTaken:      req.TimeTaken,
		Status:         req.Status,
	}
	if errs := domain.ValidateResult(&res); len(errs) > 0 {
		WriteError(w, http.StatusBadRequest, "Invalid request data")
		return
	}

	if err := d.Store.SaveResult(r.Context(), examID, res); err != nil {
		log.Printf("[api] save result failed: user=%d exam=%d err=%v", userID, examID, err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	log.Printf("[api] result: user=%d exam=%d status=%s score=%d", userID, examID, res.Status, res.Score)
	WriteData(w, http.StatusOK, map[string]string{"message": "Result saved"})
}

// --- Router ---

func (d *ServerDeps) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", d.HandleHealthz)
	mux.HandleFunc("/readyz", d.HandleReadyz)

	var login http.Handler = http.HandlerFunc(d.HandleLogin)
	login = BodyLimit(d.Cfg.MaxBodyBytes)(login)
	login = RequireJSON(login)
	mux.Handle("/api/login", login)

	var events http.Handler = http.HandlerFunc(d.HandleLogEvent)
	events = Authenticate(d.Tokens)(events)
	events = BodyLimit(d.Cfg.MaxBodyBytes)(events)
	events = RequireJSON(events)
	mux.Handle("/api/events", events)

	var results http.Handler = http.HandlerFunc(d.HandleSubmitResult)
	results = Authenticate(d.Tokens)(results)
	results = BodyLimit(d.Cfg.MaxBodyBytes)(results)
	results = RequireJSON(results)
	mux.Handle("/api/results", results)

	return RequestID(mux)
}
