// Package property implements the typed value model shared by devices and
// clients on the bus.
//
// A Property (a "vector") is identified by the pair (device name, property
// name) and holds an ordered, fixed set of Items of a single Type. Devices
// own their properties exclusively and drive the State machine:
//
//	IDLE -> BUSY      change request accepted, not yet confirmed
//	BUSY -> OK        completed
//	any  -> ALERT     failed
//	ALERT -> OK       recovered
//
// Clients never set State. They submit a patch that the owning device
// applies with CopyValues before deciding the resulting state.
//
// # Numbers
//
// Number items carry a printf-style format. The additional %m verb
// (e.g. "%12.9m") renders sexagesimal values such as "12:30:00.5", and
// ParseNumber accepts both decimal and sexagesimal input.
package property
