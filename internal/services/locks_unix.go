//go:build unix

package services

import (
	"errors"
	"os"
	"syscall"
)

// tryLock takes an exclusive flock without blocking; held is true when
// another open file description owns it. flock is advisory.
func tryLock(f *os.File) (held bool, err error) {
	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if errors.Is(err, syscall.EWOULDBLOCK) {
		return true, nil
	}
	return false, err
}

func unlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
