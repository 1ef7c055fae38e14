package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"LetterFlow/internal/ledger"
	"LetterFlow/internal/models"
	"LetterFlow/internal/queue"
	"LetterFlow/internal/subscribers"
)

// Handler exposes the publish trigger: it freezes the recipient list, seeds
// the delivery ledger, and enqueues the dispatch job. A broker outage never
// fails the request — publication and dispatch are decoupled on purpose.
type Handler struct {
	Queue     *queue.DispatchQueue
	Ledger    *ledger.Store
	Directory *subscribers.Directory
	Log       *zap.Logger
}

type publishRequest struct {
	IssueID      string `json:"issue_id"`
	NewsletterID string `json:"newsletter_id"`
	Subject      string `json:"subject"`
	Title        string `json:"title"`
	Excerpt      string `json:"excerpt"`
	BodyHTML     string `json:"body_html"`
	CanonicalURL string `json:"canonical_url"`
	SenderName   string `json:"sender_name"`
	SenderImage  string `json:"sender_image"`

	// UnsubscribeURLTemplate must contain an {email} placeholder.
	UnsubscribeURLTemplate string `json:"unsubscribe_url_template"`
}

func (h *Handler) PublishIssue(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.IssueID == "" || req.NewsletterID == "" || req.Subject == "" {
		http.Error(w, "issue_id, newsletter_id and subject are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	subscriberIDs, emails, err := h.Directory.ActiveEmails(ctx, req.NewsletterID)
	if err != nil {
		h.Log.Error("recipient resolution failed",
			zap.String("issue_id", req.IssueID),
			zap.Error(err),
		)
		http.Error(w, "failed to resolve recipients", http.StatusInternalServerError)
		return
	}

	if err := h.Ledger.CreatePending(ctx, req.IssueID, subscriberIDs); err != nil {
		// Ledger rows are observability; dispatch proceeds without them.
		h.Log.Error("ledger seeding failed",
			zap.String("issue_id", req.IssueID),
			zap.Error(err),
		)
	}

	job := models.NewIssuePublishedJob(req.IssueID, req.NewsletterID, emails)
	job.Subject = req.Subject
	job.Title = req.Title
	job.Excerpt = req.Excerpt
	job.BodyHTML = req.BodyHTML
	job.CanonicalURL = req.CanonicalURL
	job.SenderName = req.SenderName
	job.SenderImage = req.SenderImage
	job.UnsubscribeURLTemplate = req.UnsubscribeURLTemplate

	if err := h.Queue.Enqueue(ctx, job); err != nil {
		h.Log.Error("dispatch enqueue failed, issue published without email",
			zap.String("issue_id", req.IssueID),
			zap.Error(err),
		)
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":     job.ID,
		"recipients": len(emails),
	})
}

// QueueStats reports the pending / in-flight / dead list depths for
// operators and health dashboards.
func (h *Handler) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Queue.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
