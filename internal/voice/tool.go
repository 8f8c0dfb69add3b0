package voice

import "strings"

// Tool is one of the functions the voice agent may invoke.
type Tool int

const (
	ToolUnknown Tool = iota
	ToolBookAppointment
	ToolSendBookingSMS
	ToolLookupAvailability
)

var toolNames = map[Tool]string{
	ToolBookAppointment:    "book_appointment",
	ToolSendBookingSMS:     "send_booking_sms",
	ToolLookupAvailability: "lookup_availability",
}

// ParseTool maps a tool name to its Tool. ok is false for unknown names.
func ParseTool(name string) (Tool, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for tool, n := range toolNames {
		if n == name {
			return tool, true
		}
	}
	return ToolUnknown, false
}

func (t Tool) String() string {
	if n, ok := toolNames[t]; ok {
		return n
	}
	return "unknown"
}
