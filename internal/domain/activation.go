package domain

import "fmt"

// EncryptedPayload is the URL-safe base64 ciphertext of a fingerprint record.
type EncryptedPayload string

// OutcomeKind tags an ActivationOutcome.
type OutcomeKind int

const (
	OutcomeTransportFailure OutcomeKind = iota
	OutcomeNonJSONReply
	OutcomeMissingTokenField
	OutcomeToken
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeToken:
		return "token"
	case OutcomeNonJSONReply:
		return "non_json_reply"
	case OutcomeMissingTokenField:
		return "missing_token_field"
	default:
		return "transport_failure"
	}
}

// ActivationOutcome is the result of one activation exchange. Token is set
// only for OutcomeToken, Raw holds the reply body for the diagnostic kinds.
type ActivationOutcome struct {
	Kind  OutcomeKind
	Token string
	Raw   string
	Err   error
}

func TokenOutcome(token string) ActivationOutcome {
	return ActivationOutcome{Kind: OutcomeToken, Token: token}
}

func NonJSONReply(raw string) ActivationOutcome {
	return ActivationOutcome{Kind: OutcomeNonJSONReply, Raw: raw}
}

func MissingTokenField(raw string) ActivationOutcome {
	return ActivationOutcome{Kind: OutcomeMissingTokenField, Raw: raw}
}

// TransportFailure records a failed exchange. err may be nil when the
// endpoint answered with an empty body.
func TransportFailure(err error) ActivationOutcome {
	return ActivationOutcome{Kind: OutcomeTransportFailure, Err: err}
}

// OK reports whether the outcome carries a token.
func (o ActivationOutcome) OK() bool {
	return o.Kind == OutcomeToken
}

func (o ActivationOutcome) String() string {
	switch o.Kind {
	case OutcomeToken:
		return "token"
	case OutcomeTransportFailure:
		if o.Err != nil {
			return fmt.Sprintf("transport failure: %v", o.Err)
		}
		return "transport failure: empty reply"
	default:
		return fmt.Sprintf("%s: %q", o.Kind, o.Raw)
	}
}
