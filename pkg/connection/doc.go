// Package connection keeps links to remote INDIGO servers alive.
//
// A Link dials a server, waits for the session to end and dials again.
// Failed attempts back off exponentially:
//
//  1. Initial delay: 1 second
//  2. Doubling: 2s, 4s, 8s, 16s
//  3. Maximum delay: 30 seconds
//  4. Reset to 1s once a session is established
//
// Each delay gets up to 25% random jitter so that servers restarted
// together do not redial in lockstep.
package connection
