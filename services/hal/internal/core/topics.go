package core

import "voicehal/bus"

// hal/state (retained)
func TopicState() bus.Topic { return bus.T("hal", "state") }

// hal/cap/<kind>/<name>/status (retained)
func TopicCapStatus(kind, name string) bus.Topic {
	return bus.T("hal", "cap", kind, name, "status")
}

// hal/cap/io/button/<name>/event/<edge>
func TopicButtonEvent(name, edge string) bus.Topic {
	return bus.T("hal", "cap", "io", "button", name, "event", edge)
}
