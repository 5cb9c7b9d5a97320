package mqtt

import (
	"strings"
)

// TopicPrefix is the root of every sensorspace topic.
const TopicPrefix = "sensorspace"

// unknownSegment replaces empty topic levels.
const unknownSegment = "unknown"

// Topics provides builders for sensorspace MQTT topics.
//
//	topic := mqtt.Topics{}.Reading("garage", "7", "boiler")
//	// Returns: "sensorspace/reading/garage/7/boiler"
type Topics struct{}

// Reading returns the topic a device publishes its readings on.
// Each level is sanitized with Segment.
//
// Example: sensorspace/reading/garage/7/boiler
func (Topics) Reading(location, deviceID, deviceName string) string {
	return strings.Join([]string{
		TopicPrefix, "reading",
		Segment(location), Segment(deviceID), Segment(deviceName),
	}, "/")
}

// AllReadings returns the wildcard filter for every reading topic.
//
// Example: sensorspace/reading/#
func (Topics) AllReadings() string {
	return TopicPrefix + "/reading/#"
}

// Status returns the retained online/offline topic of one client.
//
// Example: sensorspace/status/sensorspace-1a2b3c4d
func (Topics) Status(clientID string) string {
	return TopicPrefix + "/status/" + Segment(clientID)
}

// AllStatus returns the wildcard filter for every client status.
func (Topics) AllStatus() string {
	return TopicPrefix + "/status/+"
}

// Segment makes s usable as one topic level: separators and wildcards
// become '_' and an empty string becomes "unknown".
func Segment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return unknownSegment
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', 0:
			return '_'
		default:
			return r
		}
	}, s)
}

// ReadingTopic is a parsed reading topic.
type ReadingTopic struct {
	Location   string
	DeviceID   string
	DeviceName string
}

// ParseReadingTopic splits a topic built by Topics.Reading.
// Trailing levels may be missing; they are left empty.
//
// Returns:
//   - ReadingTopic: the parsed levels
//   - bool: false if topic is not under sensorspace/reading/
func ParseReadingTopic(topic string) (ReadingTopic, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefix+"/reading/")
	if !ok {
		return ReadingTopic{}, false
	}

	var rt ReadingTopic
	levels := strings.SplitN(rest, "/", 3)
	for i, dst := range []*string{&rt.Location, &rt.DeviceID, &rt.DeviceName} {
		if i < len(levels) {
			*dst = levels[i]
		}
	}
	return rt, true
}
