// Package mirror publishes bus properties to an MQTT broker and forwards
// change requests received from it.
//
// The mirror attaches to the bus as an ordinary client. Each defined
// property is published retained under
//
//	<prefix>/<device>/<property>
//
// as a JSON document holding its state and item values. Deleting a
// property publishes an empty retained payload, which clears it on the
// broker. Device messages go to <prefix>/message without retain.
//
// A JSON object of item values published to
//
//	<prefix>/<device>/<property>/set
//
// becomes a ChangeProperty request on the bus. BLOB payloads are never
// published, only their format and size.
package mirror
