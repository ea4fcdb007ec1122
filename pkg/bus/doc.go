// Package bus implements the in-process property bus that connects device
// drivers to clients.
//
// Devices own properties and receive requests (enumerate, change, enable
// BLOB) from clients. Clients receive broadcasts (define, update, delete,
// message) from devices. Both sides are interfaces, so a driver, a UI, a
// network connection or a test double all attach the same way:
//
//	b := bus.New(bus.Config{Logger: logger})
//	b.AttachDevice(ccd)
//	b.AttachClient(ui)
//	b.EnumerateProperties(ui, nil)
//
// # Routing
//
// A request addressed to an empty device name, or to "*", reaches every
// device, and devices see the filter with an empty device name. Otherwise
// it reaches the device with that exact name, plus the remote adapter
// "@ host:port" when the target is "<name> @ host:port", which is how a
// request for "CCD @ host:port" travels to the remote server.
//
// # Delivery
//
// Calls run participant callbacks on the caller's goroutine. Broadcasts
// visit clients in attachment order and no client ever runs two callbacks
// at once. When a delivery reaches a client that is busy, it is queued and
// run, in order, by the goroutine already delivering to that client. A
// client may therefore change other devices from inside its callbacks, as
// a snooping agent does; the resulting updates reach it after the current
// callback returns.
//
// Devices answer EnumerateProperties with DefinePropertyTo, so only the
// asking client receives the definitions. Callback errors and panics are
// logged and counted but never returned to the broadcaster.
package bus
