package buildconfig

import (
	"errors"
	"fmt"
	"strings"
)

// BuildMode selects every decision the assembler makes.
type BuildMode string

const (
	Development BuildMode = "development"
	Production  BuildMode = "production"
)

// ErrConfiguration is matched by every ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a missing or unrecognized build mode signal.
type ConfigurationError struct {
	Signal string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Signal == "" {
		return fmt.Sprintf("configuration error: build mode %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: build mode %q %s", e.Signal, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ParseMode converts the external mode signal (usually NODE_ENV) into a BuildMode.
func ParseMode(signal string) (BuildMode, error) {
	s := strings.TrimSpace(signal)
	if s == "" {
		return "", &ConfigurationError{Reason: "is missing"}
	}

	mode := BuildMode(s)
	if !mode.Valid() {
		return "", &ConfigurationError{Signal: s, Reason: "is not recognized"}
	}

	return mode, nil
}

// Valid reports whether the mode has an entry in the mode table.
func (m BuildMode) Valid() bool {
	_, ok := modeTable[m]
	return ok
}

func (m BuildMode) String() string {
	return string(m)
}

// Modes returns the known modes in a stable order.
func Modes() []BuildMode {
	return []BuildMode{Development, Production}
}
