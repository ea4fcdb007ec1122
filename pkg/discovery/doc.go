// Package discovery implements mDNS/DNS-SD advertisement and browsing of
// property bus servers.
//
// Servers advertise the service type _indigo._tcp on the port their XML
// listener is bound to. The instance name is the server's friendly name.
// TXT records carry:
//
//	ver  highest protocol version the server speaks ("2.0")
//	dev  number of devices attached when the record was last updated
//	id   a random server identifier, stable for the process lifetime
//
// Clients browse for the same service type and dial the first address of
// a discovered Service.
package discovery
