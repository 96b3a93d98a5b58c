// Package connection implements the single-connection manager behind the
// client screen.
//
// The Manager:
//   - Holds at most one connection Handle at a time
//   - Opens a Handle to a fixed endpoint and greets the server once it opens
//   - Closes the held Handle on request and forgets it
//   - Delivers transport events (opened, message, closed, failed) in order
//     through a single dispatcher goroutine
//
// A Handle that the server closes stays held until Close is called; a
// second Open abandons the first Handle unless CloseOnReopen is set.
package connection
