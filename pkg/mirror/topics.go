package mirror

import "strings"

// DefaultTopicPrefix is used when Config.TopicPrefix is empty.
const DefaultTopicPrefix = "indigo"

// Topics builds the topic tree below a prefix.
type Topics struct {
	Prefix string
}

// Property is the retained state topic of a property.
func (t Topics) Property(device, name string) string {
	return t.Prefix + "/" + Segment(device) + "/" + Segment(name)
}

// Set is the request topic of a property.
func (t Topics) Set(device, name string) string {
	return t.Property(device, name) + "/set"
}

// AllSets matches every request topic.
func (t Topics) AllSets() string {
	return t.Prefix + "/+/+/set"
}

// Message is the topic device and global messages are published to.
func (t Topics) Message() string {
	return t.Prefix + "/message"
}

// Status is the retained online/offline topic of the mirror itself.
func (t Topics) Status() string {
	return t.Prefix + "/status"
}

// ParseSet splits a request topic into its device and property segments.
func (t Topics) ParseSet(topic string) (device, name string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.Prefix+"/")
	if !found {
		return "", "", false
	}
	rest, found = strings.CutSuffix(rest, "/set")
	if !found {
		return "", "", false
	}
	device, name, found = strings.Cut(rest, "/")
	if !found || device == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return device, name, true
}

var segmentReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// Segment makes a device or property name safe for use as one topic level.
func Segment(s string) string {
	return segmentReplacer.Replace(s)
}
