package auth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/loopauth/internal/shared"
)

// stateDelimiter separates the port from the encoded nonce.
const stateDelimiter = ","

// State is the value round-tripped through the identity provider: "<port>,<encoded-nonce>".
type State struct {
	Port  int
	Nonce string
}

func (s State) String() string {
	return strconv.Itoa(s.Port) + stateDelimiter + s.Nonce
}

// ParseState splits a received state value. Anything other than a numeric port and a non-empty nonce
// separated by exactly one delimiter wraps [shared.ErrStateMismatch].
func ParseState(v string) (State, error) {
	parts := strings.Split(v, stateDelimiter)
	if len(parts) != 2 {
		return State{}, fmt.Errorf("%w: expected 2 fields, got %d", shared.ErrStateMismatch, len(parts))
	}

	if parts[1] == "" {
		return State{}, fmt.Errorf("%w: empty nonce", shared.ErrStateMismatch)
	}

	port, err := strconv.Atoi(parts[0])
	if err != nil || port <= 0 || port > 65535 {
		return State{}, fmt.Errorf("%w: invalid port %q", shared.ErrStateMismatch, parts[0])
	}

	return State{Port: port, Nonce: parts[1]}, nil
}
