//go:build windows

package services

import (
	"os"
	"syscall"
	"unsafe"
)

var (
	kernel32         = syscall.NewLazyDLL("kernel32.dll")
	procLockFileEx   = kernel32.NewProc("LockFileEx")
	procUnlockFileEx = kernel32.NewProc("UnlockFileEx")
)

const (
	lockfileFailImmediately = 0x00000001
	lockfileExclusiveLock   = 0x00000002
	errLockViolation        = syscall.Errno(33) // ERROR_LOCK_VIOLATION
)

// tryLock locks the first byte of f with LockFileEx without blocking
func tryLock(f *os.File) (held bool, err error) {
	overlapped := syscall.Overlapped{}
	r1, _, callErr := procLockFileEx.Call(
		uintptr(syscall.Handle(f.Fd())),
		uintptr(lockfileExclusiveLock|lockfileFailImmediately),
		0,
		uintptr(1),
		0,
		uintptr(unsafe.Pointer(&overlapped)),
	)
	if r1 != 0 {
		return false, nil
	}
	if callErr == errLockViolation {
		return true, nil
	}
	return false, callErr
}

func unlock(f *os.File) error {
	overlapped := syscall.Overlapped{}
	r1, _, callErr := procUnlockFileEx.Call(
		uintptr(syscall.Handle(f.Fd())),
		0,
		uintptr(1),
		0,
		uintptr(unsafe.Pointer(&overlapped)),
	)
	if r1 == 0 {
		return callErr
	}
	return nil
}
