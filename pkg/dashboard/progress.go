package dashboard

import "fmt"

// Status is the loading state of the metrics panel
type Status int8

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSucceeded
	StatusFailed
)

var statusNames = map[Status]string{
	StatusIdle:      "idle",
	StatusLoading:   "loading",
	StatusSucceeded: "succeeded",
	StatusFailed:    "failed",
}

// String returns the lower case name of the status
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", s)
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Progress is what the user sees about the metrics load
type Progress struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

// Done reports whether the load reached a terminal state
func (p Progress) Done() bool {
	return p.Status == StatusSucceeded || p.Status == StatusFailed
}

const (
	loadingMessage = "Loading metrics, wait a sec..."
	failedMessage  = "Error loading metrics."
)

func loading() Progress {
	return Progress{Status: StatusLoading, Message: loadingMessage}
}

func succeeded() Progress {
	return Progress{Status: StatusSucceeded}
}

func failed(err error) Progress {
	return Progress{Status: StatusFailed, Message: failedMessage, Err: err}
}
