package activation

import (
	"encoding/json"

	"github.com/magicaleks/magickey/internal/domain"
)

// TokenField is the reply field holding the session token.
const TokenField = "randkey"

// Classify maps a reply body to an outcome. The first-byte check runs before
// any parsing: the backend reports errors as plain text.
func Classify(body []byte) domain.ActivationOutcome {
	if len(body) == 0 {
		return domain.TransportFailure(nil)
	}

	raw := string(body)
	if body[0] != '{' {
		return domain.NonJSONReply(raw)
	}

	var reply map[string]json.RawMessage
	if err := json.Unmarshal(body, &reply); err != nil {
		return domain.MissingTokenField(raw)
	}

	field, ok := reply[TokenField]
	if !ok {
		return domain.MissingTokenField(raw)
	}

	// An empty string is still a token; null and non-strings are not.
	var value any
	if err := json.Unmarshal(field, &value); err != nil {
		return domain.MissingTokenField(raw)
	}
	token, ok := value.(string)
	if !ok {
		return domain.MissingTokenField(raw)
	}
	return domain.TokenOutcome(token)
}
