package enums

import "slices"

// OutboxDLQErrorReason records why the publisher gave up on an outbox row.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts means every publish attempt failed transiently.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable means Pub/Sub rejected the message outright.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonUndecodable means the stored sale or repair payload could
	// not be matched to a registered event type and version.
	OutboxDLQReasonUndecodable OutboxDLQErrorReason = "undecodable"
	// OutboxDLQReasonUnrouted means no topic publisher is configured for the
	// event type in this deployment.
	OutboxDLQReasonUnrouted OutboxDLQErrorReason = "unrouted"
)

var validOutboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
	OutboxDLQReasonUndecodable,
	OutboxDLQReasonUnrouted,
}

func (r OutboxDLQErrorReason) String() string {
	return string(r)
}

func (r OutboxDLQErrorReason) IsValid() bool {
	return slices.Contains(validOutboxDLQErrorReasons, r)
}
