package model

import "github.com/pkg/errors"

var (
	ErrNoSuchGame          = errors.New("no such game")
	ErrGameExists          = errors.New("game already exists")
	ErrInvalidSettingKey   = errors.New("invalid setting key")
	ErrSettingTypeMismatch = errors.New("setting type mismatch")
	ErrDataParse           = errors.New("failed to parse data")
	ErrIO                  = errors.New("io error")
	ErrBackend             = errors.New("backend error")
	ErrUnknownBackend      = errors.New("unknown backend")
	ErrInvalidConfType     = errors.New("invalid config type")
)
