package domain

// DiagnosticEvent is one append-only entry in the run's diagnostics log.
type DiagnosticEvent struct {
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Diagnostics is a lightweight logging container threaded through graph
// state. Events are append-only within a run.
type Diagnostics struct {
	Events   []DiagnosticEvent `json:"events,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
	Errors   []string          `json:"errors,omitempty"`
}

// Record appends an event and mirrors warnings/errors into their lists.
// Fields are passed as alternating key/value pairs.
func (d *Diagnostics) Record(level, message string, fields ...string) {
	event := DiagnosticEvent{Level: level, Message: message}
	if len(fields) > 1 {
		event.Fields = map[string]string{}
		for i := 0; i+1 < len(fields); i += 2 {
			event.Fields[fields[i]] = fields[i+1]
		}
	}
	d.Events = append(d.Events, event)

	switch level {
	case "error":
		d.Errors = append(d.Errors, message)
	case "warning":
		d.Warnings = append(d.Warnings, message)
	}
}
