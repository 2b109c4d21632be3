package domain

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Handshake is the first protocol exchange establishing a session's username.
// It arrives as a JSON object on the first line of the connection.
type Handshake struct {
	Username string `json:"username" validate:"required,max=15,alphanum"`
}

// ParseHandshake decodes the first line sent by a client. A line that is not
// valid JSON is treated as a raw username, a compatibility affordance for
// minimal peers such as telnet.
func ParseHandshake(line string) Handshake {
	trimmed := strings.TrimSpace(line)

	var hs Handshake
	if err := json.Unmarshal([]byte(trimmed), &hs); err != nil {
		return Handshake{Username: trimmed}
	}
	hs.Username = strings.TrimSpace(hs.Username)
	return hs
}

// Validate enforces the username rules: non-empty, at most 15 characters,
// alphanumeric only.
func (h Handshake) Validate() error {
	return validate.Struct(h)
}
