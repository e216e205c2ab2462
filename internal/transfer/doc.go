// Package transfer owns the connection lifecycle on both sides.
//
// Ownership boundary:
// - sender: pre-flight, dial, header write, chunked payload push
// - receiver: sequential accept loop, payload drain, record emission
//
// One connection carries exactly one transfer. Receiver failures are
// isolated per connection; sender failures abort the run.
package transfer
