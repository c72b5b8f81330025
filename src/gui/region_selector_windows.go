//go:build windows

package gui

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"

	"quick-ocr/src/region"
	"quick-ocr/src/screenshot"
)

const (
	overlayClassName         = "QuickOCRRegionOverlay"
	overlayTitle             = "Select Region - Drag to select, ESC cancels"
	overlayAlpha             = 77         // 0.3 opacity
	overlayFillColor         = 0x00101010 // near black
	outlineColor             = 0x00CC7A00 // #007acc, COLORREF is 0x00BBGGRR
	outlineWidth             = 2
	overlayKeyPollTimerID    = 1
	overlayKeyPollIntervalMs = 25

	lwaAlpha = 0x2
	psSolid  = 0
)

var (
	user32DLL = syscall.NewLazyDLL("user32.dll")
	gdi32DLL  = syscall.NewLazyDLL("gdi32.dll")

	procAllowSetForegroundWindow   = user32DLL.NewProc("AllowSetForegroundWindow")
	procGetAsyncKeyState           = user32DLL.NewProc("GetAsyncKeyState")
	procSetLayeredWindowAttributes = user32DLL.NewProc("SetLayeredWindowAttributes")
	procFillRect                   = user32DLL.NewProc("FillRect")
	procCreatePen                  = gdi32DLL.NewProc("CreatePen")
	procCreateSolidBrush           = gdi32DLL.NewProc("CreateSolidBrush")
	procRectangle                  = gdi32DLL.NewProc("Rectangle")
)

var (
	registerOnce sync.Once
	registerErr  error
	crossCursor  win.HCURSOR

	selectMu sync.Mutex
	// active is the overlay of the running SelectRegion call. The window
	// procedure runs on the same locked thread, so no further locking is needed.
	active *overlay
)

type overlay struct {
	hwnd          win.HWND
	tracker       *region.Tracker
	brush         win.HGDIOBJ
	pen           win.HGDIOBJ
	escapeWasDown bool
}

// VirtualScreen reads the virtual screen rectangle from the system metrics.
func VirtualScreen() (region.Metrics, error) {
	m := region.Metrics{
		Origin: region.Point{
			X: int(win.GetSystemMetrics(win.SM_XVIRTUALSCREEN)),
			Y: int(win.GetSystemMetrics(win.SM_YVIRTUALSCREEN)),
		},
		Width:  int(win.GetSystemMetrics(win.SM_CXVIRTUALSCREEN)),
		Height: int(win.GetSystemMetrics(win.SM_CYVIRTUALSCREEN)),
	}
	if !m.Valid() {
		log.Printf("OVERLAY: System metrics returned empty virtual screen, using display bounds")
		return screenshot.VirtualScreen()
	}
	return m, nil
}

// SelectRegion shows the overlay over m and blocks until the selection is
// captured or cancelled. Escape, WM_CLOSE and ctx cancellation all end the
// session as cancelled. The call owns the calling goroutine's OS thread for
// its whole duration.
func SelectRegion(ctx context.Context, m region.Metrics, opts SelectOptions) (region.Session, error) {
	if !m.Valid() {
		return region.Session{}, fmt.Errorf("invalid virtual screen %s", m)
	}
	if !selectMu.TryLock() {
		return region.Session{}, ErrSelectionInProgress
	}
	defer selectMu.Unlock()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := registerOverlayClass(); err != nil {
		return region.Session{}, err
	}

	log.Printf("OVERLAY: Virtual screen %s", m)
	ov := &overlay{tracker: region.NewTracker(region.NewSession(m, opts.MinSpan))}
	ov.tracker.Subscribe(ov.onChange)
	if err := ov.createGDIObjects(); err != nil {
		return region.Session{}, err
	}
	defer ov.releaseGDIObjects()

	active = ov
	defer func() { active = nil }()

	hwnd := win.CreateWindowEx(
		win.WS_EX_TOPMOST|win.WS_EX_LAYERED|win.WS_EX_TOOLWINDOW,
		syscall.StringToUTF16Ptr(overlayClassName),
		syscall.StringToUTF16Ptr(overlayTitle),
		win.WS_POPUP,
		int32(m.Origin.X), int32(m.Origin.Y), int32(m.Width), int32(m.Height),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		return region.Session{}, fmt.Errorf("failed to create overlay window (error %d)", win.GetLastError())
	}
	ov.hwnd = hwnd
	defer win.DestroyWindow(hwnd)

	procSetLayeredWindowAttributes.Call(uintptr(hwnd), 0, overlayAlpha, lwaAlpha)
	ov.bringToFront()

	if timerID := win.SetTimer(hwnd, overlayKeyPollTimerID, overlayKeyPollIntervalMs, 0); timerID == 0 {
		log.Printf("OVERLAY: Failed to start keyboard poll timer")
	}
	defer win.KillTimer(hwnd, overlayKeyPollTimerID)

	stop := context.AfterFunc(ctx, func() {
		win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
	})
	defer stop()

	var msg win.MSG
	quit := false
	for !ov.tracker.Session().Done() {
		switch win.GetMessage(&msg, 0, 0, 0) {
		case 0:
			log.Printf("OVERLAY: WM_QUIT received during selection")
			quit = true
			ov.tracker.Cancel()
		case -1:
			log.Printf("OVERLAY: GetMessage error %d", win.GetLastError())
			ov.tracker.Cancel()
		default:
			win.TranslateMessage(&msg)
			win.DispatchMessage(&msg)
		}
	}
	if quit {
		// WM_QUIT belongs to an outer message loop.
		win.PostQuitMessage(int32(msg.WParam))
	}

	s := ov.tracker.Session()
	logOutcome(s)
	return s, nil
}

func registerOverlayClass() error {
	registerOnce.Do(func() {
		crossCursor = win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_CROSS))
		wndClass := win.WNDCLASSEX{
			CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
			Style:         win.CS_HREDRAW | win.CS_VREDRAW,
			LpfnWndProc:   syscall.NewCallback(overlayWndProc),
			HInstance:     win.GetModuleHandle(nil),
			HCursor:       crossCursor,
			LpszClassName: syscall.StringToUTF16Ptr(overlayClassName),
		}
		if atom := win.RegisterClassEx(&wndClass); atom == 0 {
			registerErr = fmt.Errorf("failed to register overlay window class (error %d)", win.GetLastError())
		}
	})
	return registerErr
}

func (ov *overlay) createGDIObjects() error {
	brush, _, _ := procCreateSolidBrush.Call(overlayFillColor)
	if brush == 0 {
		return fmt.Errorf("failed to create overlay brush")
	}
	pen, _, _ := procCreatePen.Call(psSolid, outlineWidth, outlineColor)
	if pen == 0 {
		win.DeleteObject(win.HGDIOBJ(brush))
		return fmt.Errorf("failed to create outline pen")
	}
	ov.brush = win.HGDIOBJ(brush)
	ov.pen = win.HGDIOBJ(pen)
	return nil
}

func (ov *overlay) releaseGDIObjects() {
	win.DeleteObject(ov.pen)
	win.DeleteObject(ov.brush)
}

func (ov *overlay) bringToFront() {
	win.ShowWindow(ov.hwnd, win.SW_SHOW)
	procAllowSetForegroundWindow.Call(uintptr(os.Getpid()))
	if !win.SetForegroundWindow(ov.hwnd) {
		log.Printf("OVERLAY: SetForegroundWindow failed; ESC is still polled")
	}
	win.BringWindowToTop(ov.hwnd)
	win.SetFocus(ov.hwnd)
	win.UpdateWindow(ov.hwnd)
}

// onChange repaints only the area covered by the old and new outlines.
func (ov *overlay) onChange(prev, next region.Session) {
	if ov.hwnd == 0 {
		return
	}
	const pad = outlineWidth + 1
	for _, s := range []region.Session{prev, next} {
		if !dragging(s) {
			continue
		}
		o := s.Outline()
		rc := win.RECT{
			Left:   int32(o.Min.X - pad),
			Top:    int32(o.Min.Y - pad),
			Right:  int32(o.Max.X + pad),
			Bottom: int32(o.Max.Y + pad),
		}
		win.InvalidateRect(ov.hwnd, &rc, false)
	}
}

func (ov *overlay) paint(hdc win.HDC, dirty *win.RECT) {
	procFillRect.Call(uintptr(hdc), uintptr(unsafe.Pointer(dirty)), uintptr(ov.brush))

	if s := ov.tracker.Session(); dragging(s) {
		o := s.Outline()
		oldPen := win.SelectObject(hdc, ov.pen)
		oldBrush := win.SelectObject(hdc, win.GetStockObject(win.NULL_BRUSH))
		procRectangle.Call(uintptr(hdc),
			uintptr(o.Min.X), uintptr(o.Min.Y),
			uintptr(o.Max.X+1), uintptr(o.Max.Y+1))
		win.SelectObject(hdc, oldPen)
		win.SelectObject(hdc, oldBrush)
	}
	drawSelectionHints(hdc)
}

func dragging(s region.Session) bool {
	return s.Phase == region.PhasePressed || s.Phase == region.PhaseDragging
}

// overlayWndProc handles window messages for the active overlay.
func overlayWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	ov := active
	if ov == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}

	switch msg {
	case win.WM_LBUTTONDOWN:
		win.SetCapture(hwnd)
		ov.tracker.Press(pointFromLParam(lParam))
		return 0

	case win.WM_MOUSEMOVE:
		ov.tracker.Drag(pointFromLParam(lParam))
		return 0

	case win.WM_LBUTTONUP:
		win.ReleaseCapture()
		s := ov.tracker.Release(pointFromLParam(lParam))
		if s.Phase == region.PhaseCancelled {
			log.Printf("OVERLAY: Selection below %dpx, treated as a click", s.MinSpan)
		}
		return 0

	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		hdc := win.BeginPaint(hwnd, &ps)
		ov.paint(hdc, &ps.RcPaint)
		win.EndPaint(hwnd, &ps)
		return 0

	case win.WM_ERASEBKGND:
		return 1

	case win.WM_SETCURSOR:
		if crossCursor != 0 {
			win.SetCursor(crossCursor)
		}
		return 1

	case win.WM_TIMER:
		if wParam == overlayKeyPollTimerID {
			ov.pollEscape()
		}
		return 0

	case win.WM_KEYDOWN:
		if wParam == win.VK_ESCAPE {
			ov.escapeWasDown = true
			ov.tracker.Cancel()
		}
		return 0

	case win.WM_KEYUP:
		if wParam == win.VK_ESCAPE {
			ov.escapeWasDown = false
		}
		return 0

	case win.WM_CLOSE:
		ov.tracker.Cancel()
		return 0

	case win.WM_NCHITTEST:
		// Force all points to be client area so the window receives mouse events
		return uintptr(win.HTCLIENT)

	case win.WM_DESTROY:
		// No PostQuitMessage: a leftover WM_QUIT would cancel the next selection instantly.
		return 0
	}

	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

// pollEscape catches ESC even when the overlay never received keyboard focus.
func (ov *overlay) pollEscape() {
	state, _, _ := procGetAsyncKeyState.Call(uintptr(win.VK_ESCAPE))
	s := uint16(state)
	down := s&0x8000 != 0
	pressed := s&0x0001 != 0
	if !ov.escapeWasDown && (down || pressed) {
		log.Printf("OVERLAY: Escape detected via async polling")
		ov.tracker.Cancel()
	}
	ov.escapeWasDown = down
}

// pointFromLParam decodes signed client coordinates; they go negative while
// the mouse is captured outside the window.
func pointFromLParam(lParam uintptr) region.Point {
	return region.Point{
		X: int(int16(win.LOWORD(uint32(lParam)))),
		Y: int(int16(win.HIWORD(uint32(lParam)))),
	}
}

func drawSelectionHints(hdc win.HDC) {
	const hint = "Drag to select text   ESC cancel"
	win.SetBkMode(hdc, win.TRANSPARENT)
	win.SetTextColor(hdc, win.COLORREF(0xFFFFFF))
	win.TextOut(hdc, 16, 16, syscall.StringToUTF16Ptr(hint), int32(len(hint)))
}
