// Package httpapi exposes the voice bridge over plain HTTP for front ends
// that cannot hold a websocket open. Every endpoint requires the shared
// secret as a bearer token and is rate limited per client IP.
package httpapi
