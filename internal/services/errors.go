// Package services defines the business logic of the quote flow: sessions,
// the streamed chat relay, proposal synthesis, media, feedback and document
// export. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer. Upstream model rejections are reported with the
// sentinels of package llm.
package services

import "errors"

// Session errors.
var (
	// ErrSessionNotFound indicates that the token does not resolve to a
	// session, or that the session no longer accepts chat turns.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidStatus is returned when an operation is not allowed in the
	// session's current lifecycle state.
	ErrInvalidStatus = errors.New("operation not allowed in current session status")

	// ErrClientNameRequired is returned when a session is created without a
	// customer name.
	ErrClientNameRequired = errors.New("client name is required")
)

// Conversation errors.
var (
	// ErrEmptyPrompt is returned when the latest user turn is blank.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrTooLong is returned when the latest user turn exceeds the configured
	// maximum length.
	ErrTooLong = errors.New("prompt too long")

	// ErrConversationTooLong is returned when the session's message log has
	// reached its configured bound.
	ErrConversationTooLong = errors.New("conversation reached its message limit")
)

// Proposal errors.
var (
	// ErrNotEnoughHistory is returned when synthesis is requested before the
	// log holds at least one user and one assistant message.
	ErrNotEnoughHistory = errors.New("conversation needs at least one user and one assistant message")

	// ErrProposalConflict is returned when another synthesis was stored since
	// the caller read the session (optimistic concurrency).
	ErrProposalConflict = errors.New("proposal was modified concurrently")

	// ErrNoProposal is returned when a proposal is required but none exists.
	ErrNoProposal = errors.New("session has no proposal")

	// ErrEmptyProposal is returned when the model produced no text at all.
	ErrEmptyProposal = errors.New("model returned an empty proposal")
)

// Media and feedback errors.
var (
	// ErrMediaNotFound indicates that no media with the given name exists in
	// the session.
	ErrMediaNotFound = errors.New("media not found")

	// ErrStorageUnavailable is returned when object storage is not configured.
	ErrStorageUnavailable = errors.New("object storage unavailable")

	// ErrInvalidFeedback is returned when a feedback field is outside its
	// allowed set.
	ErrInvalidFeedback = errors.New("invalid feedback")
)
