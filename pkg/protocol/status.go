package protocol

import "fmt"

// Status is a ThingSet response code. The high bits select the class:
// 0x80 success, 0xA0 client error, 0xC0 server error.
type Status uint8

// StatusNone marks a response whose status could not be parsed (timeout or garbage).
const StatusNone Status = 0

const (
	StatusCreated Status = 0x81
	StatusDeleted Status = 0x82
	StatusValid   Status = 0x83
	StatusChanged Status = 0x84
	StatusContent Status = 0x85

	StatusBadRequest        Status = 0xA0
	StatusUnauthorized      Status = 0xA1
	StatusForbidden         Status = 0xA3
	StatusNotFound          Status = 0xA4
	StatusMethodNotAllowed  Status = 0xA5
	StatusRequestIncomplete Status = 0xA8
	StatusConflict          Status = 0xA9
	StatusRequestTooLarge   Status = 0xAD
	StatusUnsupportedFormat Status = 0xAF

	StatusInternalServerError Status = 0xC0
	StatusNotImplemented      Status = 0xC1
	StatusGatewayTimeout      Status = 0xC4
	StatusNotAGateway         Status = 0xC5
)

var statusNames = map[Status]string{
	StatusCreated:             "Created",
	StatusDeleted:             "Deleted",
	StatusValid:               "Valid",
	StatusChanged:             "Changed",
	StatusContent:             "Content",
	StatusBadRequest:          "Bad Request",
	StatusUnauthorized:        "Unauthorized",
	StatusForbidden:           "Forbidden",
	StatusNotFound:            "Not Found",
	StatusMethodNotAllowed:    "Method Not Allowed",
	StatusRequestIncomplete:   "Request Entity Incomplete",
	StatusConflict:            "Conflict",
	StatusRequestTooLarge:     "Request Entity Too Large",
	StatusUnsupportedFormat:   "Unsupported Content-Format",
	StatusInternalServerError: "Internal Server Error",
	StatusNotImplemented:      "Not Implemented",
	StatusGatewayTimeout:      "Gateway Timeout",
	StatusNotAGateway:         "Not a Gateway",
}

// Known reports whether s is a parsed status rather than StatusNone.
func (s Status) Known() bool { return s != StatusNone }

// OK reports whether the response carries usable data (s <= Content).
func (s Status) OK() bool { return s.Known() && s <= StatusContent }

func (s Status) IsClientError() bool { return s >= 0xA0 && s < 0xC0 }
func (s Status) IsServerError() bool { return s >= 0xC0 && s < 0xE0 }

// Class returns "success", "client_error", "server_error", "none" or "unknown".
func (s Status) Class() string {
	switch {
	case !s.Known():
		return "none"
	case s.OK():
		return "success"
	case s.IsClientError():
		return "client_error"
	case s.IsServerError():
		return "server_error"
	default:
		return "unknown"
	}
}

func (s Status) String() string {
	if !s.Known() {
		return "none"
	}
	if n, ok := statusNames[s]; ok {
		return fmt.Sprintf("0x%02X %s", uint8(s), n)
	}
	return fmt.Sprintf("0x%02X", uint8(s))
}
