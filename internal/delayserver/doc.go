// Package delayserver implements a TCP server that answers each request
// after a client-chosen delay, used to exercise readiness notification
// against sockets that become readable at a predictable time.
//
// Requests take the form:
//
//	GET /delay/<milliseconds>/url/<anything> HTTP/1.1
//
// The server sleeps for the requested delay, writes an empty HTTP 200
// response, and closes the connection. Connections are served by a fixed
// size pool of workers, so at most that many delays elapse concurrently.
//
// Malformed requests are answered with 400. Clients exceeding the optional
// per-IP rate limit (Config.Rates) are answered with 429.
package delayserver
