package services

import "errors"

var (
	// ErrParsingFailed covers file-level decode failures (bad CSV, bad JSON
	// shape). Per-row problems are not errors; they accumulate in the
	// ImportResult.
	ErrParsingFailed = errors.New("error parsing file")

	// ErrStorageUnavailable is a batch-level infrastructure failure. The
	// batch aborts and no partial result is claimed.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrUnknownToken means an inbound alert/email carried an ingestion
	// token that resolves to no user.
	ErrUnknownToken = errors.New("user not found for ingestion token")

	// ErrUnknownAccount means a webhook alert addressed an account tag the
	// user does not own.
	ErrUnknownAccount = errors.New("account not found")

	// ErrBadWebhookSecret means the shared-secret header did not match;
	// processing stops before any parsing.
	ErrBadWebhookSecret = errors.New("webhook secret mismatch")
)
