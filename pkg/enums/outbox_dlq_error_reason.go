package enums

// OutboxDLQErrorReason classifies why an outbox event landed in the DLQ.
type OutboxDLQErrorReason string

const (
	DLQReasonMaxAttempts   OutboxDLQErrorReason = "max_attempts_exceeded"
	DLQReasonBadEnvelope   OutboxDLQErrorReason = "bad_envelope"
	DLQReasonPublishDenied OutboxDLQErrorReason = "publish_denied"
)

// IsValid reports whether the value is a known OutboxDLQErrorReason.
func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case DLQReasonMaxAttempts, DLQReasonBadEnvelope, DLQReasonPublishDenied:
		return true
	}
	return false
}
