package events

import "errors"

// errEventChannelDisconnected is returned by Loop.Run when the shared event
// channel is closed. Every producer (UDP ingest, peer subscriber, admin
// acceptor, flush ticker) is expected to live for the process lifetime and
// cmd/statsaggd never closes the channel, so in the daemon this only
// happens as a bug; either way the loop cannot make progress without it
// and must stop.
var errEventChannelDisconnected = errors.New("events: event channel disconnected")
