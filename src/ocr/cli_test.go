package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeTesseract writes an executable shell script standing in for tesseract.
func fakeTesseract(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tesseract scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "tesseract")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("write fake tesseract: %v", err)
	}
	return path
}

func grayImage(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = 255
	}
	g.SetGray(1, 1, color.Gray{Y: 0})
	return g
}

func TestCLIEngineArgs(t *testing.T) {
	e := NewCLIEngine(Config{})
	want := []string{"stdin", "stdout", "-l", "eng+fra", "--psm", "6"}
	got := e.Args()
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("Expected args %v, got %v", want, got)
	}
}

func TestCLIEngineRecognize(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	stdinFile := filepath.Join(dir, "stdin.png")
	path := fakeTesseract(t, `echo "$@" > "`+argsFile+`"
cat > "`+stdinFile+`"
printf 'Bonjour le monde\r\nHello\n\f'`)

	e := NewCLIEngine(Config{TesseractPath: path})
	text, err := e.Recognize(context.Background(), grayImage(20, 10))
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if text != "Bonjour le monde\nHello" {
		t.Errorf("Unexpected text %q", text)
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if got := strings.TrimSpace(string(args)); got != "stdin stdout -l eng+fra --psm 6" {
		t.Errorf("Unexpected arguments %q", got)
	}

	input, err := os.ReadFile(stdinFile)
	if err != nil {
		t.Fatalf("read stdin copy: %v", err)
	}
	if !bytes.HasPrefix(input, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("Expected a PNG image on stdin")
	}
}

func TestCLIEngineTessdataPrefix(t *testing.T) {
	out := filepath.Join(t.TempDir(), "prefix")
	path := fakeTesseract(t, `printf '%s' "$TESSDATA_PREFIX" > "`+out+`"; cat > /dev/null; echo ok`)

	e := NewCLIEngine(Config{TesseractPath: path, TessdataPrefix: "/data/tessdata"})
	if _, err := e.Recognize(context.Background(), grayImage(8, 8)); err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	got, _ := os.ReadFile(out)
	if string(got) != "/data/tessdata" {
		t.Errorf("Expected TESSDATA_PREFIX to be passed, got %q", got)
	}
}

func TestCLIEngineNotFound(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing absolute path", func(t *testing.T) string { return filepath.Join(t.TempDir(), "no-such-tesseract") }},
		{"missing on PATH", func(t *testing.T) string {
			t.Setenv("PATH", t.TempDir())
			return "tesseract-quickocr-missing"
		}},
		{"not executable", func(t *testing.T) string {
			if runtime.GOOS == "windows" {
				t.Skip("file modes are not enforced on Windows")
			}
			p := filepath.Join(t.TempDir(), "tesseract")
			if err := os.WriteFile(p, []byte("#!/bin/sh\n"), 0644); err != nil {
				t.Fatal(err)
			}
			return p
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewCLIEngine(Config{TesseractPath: tt.path(t)})
			text, err := e.Recognize(context.Background(), grayImage(8, 8))
			if !errors.Is(err, ErrEngineUnavailable) {
				t.Fatalf("Expected ErrEngineUnavailable, got %v", err)
			}
			if text != "" {
				t.Errorf("Expected no text, got %q", text)
			}
			if err := e.Check(context.Background()); !errors.Is(err, ErrEngineUnavailable) {
				t.Errorf("Expected Check to report ErrEngineUnavailable, got %v", err)
			}
		})
	}
}

func TestCLIEngineFailure(t *testing.T) {
	path := fakeTesseract(t, `cat > /dev/null
echo "Error opening data file /usr/share/tessdata/fra.traineddata" >&2
exit 1`)

	e := NewCLIEngine(Config{TesseractPath: path})
	_, err := e.Recognize(context.Background(), grayImage(8, 8))
	if err == nil {
		t.Fatal("Expected an error")
	}
	if errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("A started engine must not be reported unavailable: %v", err)
	}
	var recErr *RecognitionError
	if !errors.As(err, &recErr) {
		t.Fatalf("Expected *RecognitionError, got %T", err)
	}
	if !strings.Contains(recErr.Stderr, "fra.traineddata") {
		t.Errorf("Expected stderr to be kept, got %q", recErr.Stderr)
	}
	if !strings.Contains(err.Error(), "Error opening data file") {
		t.Errorf("Expected message to include stderr, got %q", err.Error())
	}
}

func TestCLIEngineDeadline(t *testing.T) {
	path := fakeTesseract(t, `exec sleep 10`)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	e := NewCLIEngine(Config{TesseractPath: path})
	start := time.Now()
	_, err := e.Recognize(ctx, grayImage(8, 8))
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Expected the process to be killed promptly, took %s", elapsed)
	}
	var recErr *RecognitionError
	if !errors.As(err, &recErr) {
		t.Fatalf("Expected *RecognitionError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestCLIEngineCheck(t *testing.T) {
	script := `case "$1" in
--version) echo "tesseract 5.3.0"; echo " leptonica-1.82.0" ;;
--list-langs) printf 'List of available languages in "/usr/share/tessdata/" (3):\neng\nfra\nosd\n' ;;
*) exit 2 ;;
esac`
	path := fakeTesseract(t, script)

	if err := NewCLIEngine(Config{TesseractPath: path}).Check(context.Background()); err != nil {
		t.Errorf("Expected check to pass, got %v", err)
	}

	err := NewCLIEngine(Config{TesseractPath: path, Languages: "eng+deu"}).Check(context.Background())
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("Expected missing language to be reported unavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "deu") {
		t.Errorf("Expected missing language in message, got %q", err.Error())
	}
}

func TestParseLanguageList(t *testing.T) {
	out := "List of available languages in \"C:\\Program Files\\Tesseract-OCR/tessdata/\" (2):\r\neng\r\nfra\r\n"
	got := parseLanguageList(out)
	if strings.Join(got, ",") != "eng,fra" {
		t.Errorf("Expected [eng fra], got %v", got)
	}
}

func TestNewEngine(t *testing.T) {
	e, err := NewEngine(Config{})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if e.Name() != "tesseract" {
		t.Errorf("Expected CLI engine by default, got %s", e.Name())
	}

	if _, err := NewEngine(Config{Engine: "cloud"}); err == nil {
		t.Error("Expected unknown engine to fail")
	}
}
