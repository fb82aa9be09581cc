package util

import (
	"io"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

func Exists(filePath string) bool {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return false
	}

	return true
}

// ExpandPath resolves a leading ~ to the current users home directory.
func ExpandPath(filePath string) (string, error) {
	expanded, errExpand := homedir.Expand(filePath)
	if errExpand != nil {
		return "", errors.Wrapf(errExpand, "Failed to expand path: %s", filePath)
	}

	return expanded, nil
}

func IgnoreClose(closer io.Closer) {
	_ = closer.Close()
}
