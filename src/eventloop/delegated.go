package eventloop

import (
	"errors"
	"log"

	"quick-ocr/src/session"
	"quick-ocr/src/singleinstance"
)

// delegatedRequest serves a run-once invocation. In clipboard mode the
// resident copies and shows popups as for a hotkey capture; in stdout mode it
// stays silent and the client prints the text.
func (l *Loop) delegatedRequest(conn *singleinstance.Conn) request {
	target := l.opts.Target
	if conn.Request().OutputToStdout {
		target = silentTarget{}
	}
	return request{
		target: target,
		reply: func(res session.Result, err error) {
			reply := replyFor(res, err)
			if werr := conn.Reply(reply); werr != nil {
				log.Printf("Delegated reply %s failed: %v", reply, werr)
			}
			_ = conn.Close()
		},
	}
}

func replyFor(res session.Result, err error) singleinstance.Reply {
	switch {
	case errors.Is(err, ErrBusy):
		return singleinstance.Reply{Status: singleinstance.StatusBusy}
	case err != nil:
		return singleinstance.Reply{Status: singleinstance.StatusError, Payload: session.Describe(err)}
	}
	switch res.Outcome {
	case session.OutcomeCopied:
		return singleinstance.Reply{Status: singleinstance.StatusCopied, Payload: res.Text}
	case session.OutcomeEmpty:
		return singleinstance.Reply{Status: singleinstance.StatusEmpty}
	case session.OutcomeCancelled:
		return singleinstance.Reply{Status: singleinstance.StatusCancelled}
	default:
		return singleinstance.Reply{Status: singleinstance.StatusError, Payload: res.Outcome.String()}
	}
}

type silentTarget struct{}

func (silentTarget) OnSuccess(string) error { return nil }
func (silentTarget) OnEmpty() error         { return nil }
func (silentTarget) OnFailure(error) error  { return nil }
