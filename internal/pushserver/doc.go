// Package pushserver implements the demo server the client talks to.
//
// Every upgraded connection receives "Message 0", "Message 1", ... at a
// fixed interval until the peer goes away. Anything the peer sends is read
// and logged, nothing else.
package pushserver
