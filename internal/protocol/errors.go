package protocol

import "errors"

var (
	// ErrTruncatedHeader is returned when fewer than HeaderSize bytes are available.
	ErrTruncatedHeader = errors.New("protocol: truncated header")

	// ErrTruncatedPayload is returned when the payload announced by the header
	// has not fully arrived yet.
	ErrTruncatedPayload = errors.New("protocol: truncated payload")

	// ErrBadVersion is returned for any header whose version is not Version.
	ErrBadVersion = errors.New("protocol: unsupported version")

	// ErrUnknownType is returned for a header carrying an unrecognized type code.
	ErrUnknownType = errors.New("protocol: unknown frame type")

	// ErrMalformedPayload is returned when the payload structure is inconsistent
	// with its type, for example an embedded length exceeding the remaining bytes.
	ErrMalformedPayload = errors.New("protocol: malformed payload")

	// ErrPayloadTooLarge is returned when payload_length exceeds the decoder limit.
	ErrPayloadTooLarge = errors.New("protocol: payload too large")
)

// IsIncomplete reports whether err only means that more bytes are needed.
func IsIncomplete(err error) bool {
	return errors.Is(err, ErrTruncatedHeader) || errors.Is(err, ErrTruncatedPayload)
}
