//go:build windows

package notification

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func showMessageBox(title, body string, k kind) error {
	flags := uint32(windows.MB_OK | windows.MB_TOPMOST | windows.MB_SETFOREGROUND)
	switch k {
	case kindWarning:
		flags |= windows.MB_ICONWARNING
	case kindError:
		flags |= windows.MB_ICONERROR
	default:
		flags |= windows.MB_ICONINFORMATION
	}

	titlePtr, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return fmt.Errorf("invalid title: %w", err)
	}
	bodyPtr, err := windows.UTF16PtrFromString(body)
	if err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	if _, err := windows.MessageBox(0, bodyPtr, titlePtr, flags); err != nil {
		return fmt.Errorf("MessageBox failed: %w", err)
	}
	return nil
}

// ShowBlockingError displays an error message box and returns once it is dismissed.
func ShowBlockingError(title, message string) {
	_ = showMessageBox(title, message, kindError)
}
