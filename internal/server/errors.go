package server

import (
	"errors"
	"net/http"

	"devhelper/internal/chat"
	"devhelper/internal/logging"
	"devhelper/internal/qa"
	"devhelper/internal/review"
	"devhelper/internal/ticketgen"
)

// clientErrors maps input errors to their status and public message.
var clientErrors = []struct {
	err     error
	status  int
	message string
}{
	{qa.ErrMissingInput, http.StatusBadRequest, "Missing ticketId or portalUrl"},
	{qa.ErrNoCriteria, http.StatusBadRequest, "No acceptance criteria found in ticket"},
	{review.ErrMissingTicket, http.StatusBadRequest, "Missing ticketId"},
	{review.ErrNoPullRequests, http.StatusBadRequest, "No PRs found. Please provide PR URLs or link PRs to the JIRA ticket."},
	{ticketgen.ErrMissingDescription, http.StatusBadRequest, "Task description is required"},
	{chat.ErrMissingMessage, http.StatusBadRequest, "Session ID and message are required"},
	{chat.ErrMissingSessionID, http.StatusBadRequest, "Session ID is required"},
	{chat.ErrNothingToDraft, http.StatusBadRequest, "Conversation has no user messages yet"},
	{chat.ErrSessionNotFound, http.StatusNotFound, "Session not found"},
}

// writeFailure maps err to a response. Unrecognized errors are 500s carrying
// the error text.
func writeFailure(w http.ResponseWriter, err error) {
	for _, ce := range clientErrors {
		if errors.Is(err, ce.err) {
			writeError(w, ce.status, ce.message)
			return
		}
	}

	message := err.Error()
	var se *qa.StageError
	if errors.As(err, &se) {
		message = se.Err.Error()
	}
	logging.Get(logging.CategoryHTTP).Error("Request failed: %v", err)
	writeError(w, http.StatusInternalServerError, message)
}
