// Package notification shows the outcome of a capture to the user.
package notification

import (
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	// PreviewLength is the number of characters of recognised text shown in the result popup.
	PreviewLength = 150

	ResultTitle  = "COPIED TO CLIPBOARD"
	NoTextTitle  = "QuickOCR"
	NoTextBody   = "No text found."
	ErrorTitle   = "QuickOCR error"
	previewEllip = "..."

	// ClipboardFailureTitle heads the popup that carries text the clipboard refused.
	ClipboardFailureTitle = "Clipboard unavailable"
)

type kind int

const (
	kindInfo kind = iota
	kindWarning
	kindError
)

// Preview flattens text onto a single line and cuts it to max characters.
func Preview(text string, max int) string {
	flat := strings.Join(strings.Fields(text), " ")
	if max <= 0 || utf8.RuneCountInString(flat) <= max {
		return flat
	}
	runes := []rune(flat)
	return string(runes[:max]) + previewEllip
}

// ShowResult announces that text was copied, showing a short preview.
func ShowResult(text string) {
	show(ResultTitle, Preview(text, PreviewLength), kindInfo)
}

// ShowClipboardFailure shows recognised text that could not be copied. The
// whole text is in the body so it can still be copied from the message box.
func ShowClipboardFailure(text string) {
	show(ClipboardFailureTitle, ClipboardFailureBody(text), kindWarning)
}

// ClipboardFailureBody is the body of the ShowClipboardFailure popup.
func ClipboardFailureBody(text string) string {
	return "The text was recognised but could not be copied to the clipboard.\n\n" + text
}

// ShowNoText reports a capture that contained no recognisable text.
func ShowNoText() {
	show(NoTextTitle, NoTextBody, kindWarning)
}

// ShowError reports a failed capture without blocking the caller.
func ShowError(message string) {
	show(ErrorTitle, message, kindError)
}

var pending sync.WaitGroup

func show(title, body string, k kind) {
	log.Printf("Notification: %s: %s", title, body)
	pending.Add(1)
	go func() {
		defer pending.Done()
		if err := showMessageBox(title, body, k); err != nil {
			log.Printf("Failed to show notification: %v", err)
		}
	}()
}

// Wait blocks until every popup shown so far is dismissed or timeout elapses.
// It reports whether all popups were dismissed. Short-lived processes call it
// before exiting so the result stays visible.
func Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
