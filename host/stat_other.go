//go:build !(linux || darwin || freebsd)

package host

import (
	"io/fs"
	"os"
)

var (
	errNotDir error = fs.ErrInvalid
	errIsDir  error = fs.ErrInvalid
)

// FallbackFree is reported as free and total space on hosts without statfs.
const FallbackFree = 100000000

func statPath(path string) (Stat, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Stat{}, err
	}
	return statInfo(fi), nil
}

func statFile(f *os.File) (Stat, error) {
	fi, err := f.Stat()
	if err != nil {
		return Stat{}, err
	}
	return statInfo(fi), nil
}

func statfs(path string) (Usage, error) {
	if _, err := os.Stat(path); err != nil {
		return Usage{}, err
	}
	return Usage{Total: FallbackFree, Free: FallbackFree}, nil
}
