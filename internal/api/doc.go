// Package api exposes assistant sessions over HTTP. Clients create a
// session, post queries to it and may follow the progress of running
// queries over a websocket.
package api
