package services

import "errors"

// Sentinel errors for the subscription engine. Handlers map these to HTTP
// statuses with errors.Is; messages carry only what a client may see, never
// the authoritative record's contents.
var (
	// ErrLookupFailed means the store could not answer the eligibility
	// lookup. It is a failure, never an implicit pass.
	ErrLookupFailed = errors.New("subscription lookup failed")

	// ErrStateMismatch means the client-supplied subscription snapshot
	// disagrees with the authoritative record (stale tab or forged state).
	ErrStateMismatch = errors.New("subscription state mismatch")

	// ErrAlreadyEntitled means the user still holds an unexpired
	// subscription and may not buy an overlapping one.
	ErrAlreadyEntitled = errors.New("user already has an active subscription")

	// ErrPlanIneligible means a trial-only plan was requested by a user who
	// has held a subscription before.
	ErrPlanIneligible = errors.New("plan is only available to first-time subscribers")

	// ErrUnknownPlan means the requested plan code is not in the catalog.
	ErrUnknownPlan = errors.New("unknown plan")

	// ErrInvalidSignature means webhook authenticity verification failed;
	// the payload is discarded and the provider must not retry.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedEvent means the event payload or its metadata could not
	// be decoded; retrying the same payload cannot succeed.
	ErrMalformedEvent = errors.New("malformed webhook event")

	// ErrPersistenceFailure is transient: surfaced to the provider as a
	// retryable status so at-least-once redelivery eventually lands.
	ErrPersistenceFailure = errors.New("subscription could not be persisted")
)
