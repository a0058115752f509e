// Package handlers defines the HTTP-layer error codes of the orçamento API.
//
// Codes are lowercase snake_case and stable; clients branch on them. Generic
// codes mirror HTTP status semantics, domain codes name the business rule
// that rejected the request. errorStatus maps service and gateway sentinels
// to a status and code so every handler answers the same failure the same
// way.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "proposal_conflict",
//	  "message": "proposal was modified concurrently"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/tbourn/go-orcamento-backend/internal/llm"
	"github.com/tbourn/go-orcamento-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeSessionNotFound     = "session_not_found"
	ErrCodeInvalidStatus       = "invalid_status"
	ErrCodeEmptyPrompt         = "empty_prompt"
	ErrCodePromptTooLong       = "prompt_too_long"
	ErrCodeConversationTooLong = "conversation_too_long"
	ErrCodeNotEnoughHistory    = "not_enough_history"
	ErrCodeProposalConflict    = "proposal_conflict"
	ErrCodeNoProposal          = "no_proposal"
	ErrCodeEmptyProposal       = "empty_proposal"
	ErrCodeMediaNotFound       = "media_not_found"
	ErrCodeStorageUnavailable  = "storage_unavailable"
	ErrCodeInvalidFeedback     = "invalid_feedback"
	ErrCodeQuotaExceeded       = "quota_exceeded"
	ErrCodeUpstreamFailed      = "upstream_failed"
)

// errorStatus classifies err. Unknown errors are internal.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound, ErrCodeSessionNotFound
	case errors.Is(err, services.ErrMediaNotFound):
		return http.StatusNotFound, ErrCodeMediaNotFound
	case errors.Is(err, services.ErrNoProposal):
		return http.StatusNotFound, ErrCodeNoProposal

	case errors.Is(err, services.ErrClientNameRequired):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, services.ErrEmptyPrompt):
		return http.StatusBadRequest, ErrCodeEmptyPrompt
	case errors.Is(err, services.ErrTooLong):
		return http.StatusBadRequest, ErrCodePromptTooLong
	case errors.Is(err, services.ErrInvalidFeedback):
		return http.StatusBadRequest, ErrCodeInvalidFeedback

	case errors.Is(err, services.ErrProposalConflict):
		return http.StatusConflict, ErrCodeProposalConflict
	case errors.Is(err, services.ErrInvalidStatus):
		return http.StatusConflict, ErrCodeInvalidStatus

	case errors.Is(err, services.ErrNotEnoughHistory):
		return http.StatusUnprocessableEntity, ErrCodeNotEnoughHistory
	case errors.Is(err, services.ErrConversationTooLong):
		return http.StatusUnprocessableEntity, ErrCodeConversationTooLong

	case errors.Is(err, llm.ErrQuotaExceeded):
		return http.StatusPaymentRequired, ErrCodeQuotaExceeded
	case errors.Is(err, llm.ErrRateLimited):
		return http.StatusTooManyRequests, ErrCodeRateLimited
	case errors.Is(err, services.ErrEmptyProposal):
		return http.StatusBadGateway, ErrCodeEmptyProposal

	case errors.Is(err, services.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, ErrCodeStorageUnavailable
	}
	return http.StatusInternalServerError, ErrCodeInternal
}
