package model

import (
	"strings"

	"github.com/pkg/errors"
)

// Status is the query state of a single game entry.
type Status int

const (
	StatusEmpty Status = iota
	StatusWorking
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusWorking:
		return "working"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ConfType partitions the settings of a game by purpose.
type ConfType int

const (
	ConfLauncher ConfType = iota
	ConfBackend
	ConfSystem
)

// ConfTypes lists every known config type.
var ConfTypes = []ConfType{ConfLauncher, ConfBackend, ConfSystem} //nolint:gochecknoglobals

func ParseConfType(value string) (ConfType, error) {
	switch strings.ToLower(value) {
	case "launcher":
		return ConfLauncher, nil
	case "backend":
		return ConfBackend, nil
	case "system":
		return ConfSystem, nil
	default:
		return 0, errors.Wrapf(ErrInvalidConfType, "%q", value)
	}
}

func (t ConfType) String() string {
	switch t {
	case ConfLauncher:
		return "launcher"
	case ConfBackend:
		return "backend"
	case ConfSystem:
		return "system"
	default:
		return "unknown"
	}
}
