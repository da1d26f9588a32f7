package irc

import (
	"errors"
	"fmt"
)

// errQuit reports an orderly QUIT; the connection is torn down after the
// handler already sent its farewell.
var errQuit = errors.New("client quit")

// errMalformedMessage is the umbrella for protocol errors: framing
// violations, a foreign prefix and a missing command. All of them are
// terminal for the connection.
var (
	errMalformedMessage   = errors.New("malformed message")
	errMessageTooLong     = fmt.Errorf("%w: message too long", errMalformedMessage)
	errLoneCarriageReturn = fmt.Errorf("%w: lone carriage return", errMalformedMessage)
)
