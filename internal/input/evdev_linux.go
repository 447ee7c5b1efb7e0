//go:build linux

package input

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unsafe"

	"github.com/BurntSushi/xgb/xproto"
	"golang.org/x/sys/unix"
)

// DevInput is where the kernel exposes event devices.
const DevInput = "/dev/input"

// ErrPermission is returned when no device could be opened for lack of
// access rights.
var ErrPermission = errors.New("no permission to read input devices; add your user to the 'input' group and log in again")

// ErrNoKeyboard is returned when no readable device reports a Tab key.
var ErrNoKeyboard = errors.New("no keyboard found under " + DevInput)

// eventSize is sizeof(struct input_event) on this architecture.
var eventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

// RawEvent is a decoded struct input_event without its timestamp.
type RawEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

// DecodeEvents splits buf into input_event records. A trailing partial
// record is ignored.
func DecodeEvents(buf []byte) []RawEvent {
	n := len(buf) / eventSize
	events := make([]RawEvent, 0, n)
	for i := 0; i < n; i++ {
		rec := buf[i*eventSize : (i+1)*eventSize]
		body := rec[eventSize-8:]
		events = append(events, RawEvent{
			Type:  binary.NativeEndian.Uint16(body[0:2]),
			Code:  binary.NativeEndian.Uint16(body[2:4]),
			Value: int32(binary.NativeEndian.Uint32(body[4:8])),
		})
	}
	return events
}

// evIOCGBit is EVIOCGBIT(ev, size): _IOC(_IOC_READ, 'E', 0x20+ev, size).
func evIOCGBit(ev, size uint) uint {
	const iocRead = 2
	return iocRead<<30 | size<<16 | uint('E')<<8 | (0x20 + ev)
}

func hasBit(bits []byte, n uint) bool {
	return int(n/8) < len(bits) && bits[n/8]&(1<<(n%8)) != 0
}

// supportsKey asks the driver whether the device can emit code.
func supportsKey(f *os.File, code uint) (bool, error) {
	bits := make([]byte, keyMax/8+1)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(),
		uintptr(evIOCGBit(evKey, uint(len(bits)))), uintptr(unsafe.Pointer(&bits[0])))
	if errno != 0 {
		return false, errno
	}
	return hasBit(bits, code), nil
}

// OpenKeyboards opens device, or every /dev/input/event* node reporting a
// Tab key when device is empty.
func OpenKeyboards(device string) ([]*os.File, error) {
	if device != "" {
		f, err := os.Open(device)
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil, fmt.Errorf("%w: %s", ErrPermission, device)
			}
			return nil, fmt.Errorf("open input device: %w", err)
		}
		return []*os.File{f}, nil
	}

	paths, err := filepath.Glob(filepath.Join(DevInput, "event*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var (
		files  []*os.File
		denied int
	)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				denied++
			}
			continue
		}
		ok, err := supportsKey(f, keyTab)
		if err != nil || !ok {
			f.Close()
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		if denied > 0 {
			return nil, ErrPermission
		}
		return nil, ErrNoKeyboard
	}
	return files, nil
}

// Listener reads key events from evdev devices and emits hotkey commands.
type Listener struct {
	files   []*os.File
	out     chan<- Command
	logger  *slog.Logger
	mu      sync.Mutex
	matcher *Matcher
}

// NewListener wraps already opened devices. It takes ownership of files.
func NewListener(files []*os.File, keys []Bound, out chan<- Command, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		files:   files,
		out:     out,
		logger:  logger,
		matcher: NewMatcher(keys),
	}
}

// Run reads every device until ctx is cancelled and closes them on return.
func (l *Listener) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, f := range l.files {
		wg.Add(1)
		go func(f *os.File) {
			defer wg.Done()
			l.read(ctx, f)
		}(f)
	}
	l.logger.Info("evdev listener started", "devices", len(l.files), "keys", len(l.matcher.keys))

	<-ctx.Done()
	for _, f := range l.files {
		f.Close()
	}
	wg.Wait()
	return nil
}

func (l *Listener) read(ctx context.Context, r io.Reader) {
	name := "device"
	if f, ok := r.(*os.File); ok {
		name = f.Name()
	}
	buf := make([]byte, eventSize*64)
	for {
		n, err := r.Read(buf)
		if err != nil {
			if ctx.Err() == nil {
				l.logger.Warn("input device read failed", "device", name, "error", err)
			}
			return
		}
		for _, ev := range DecodeEvents(buf[:n]) {
			l.handle(ev)
		}
	}
}

func (l *Listener) handle(ev RawEvent) {
	if ev.Type != evKey {
		return
	}
	l.mu.Lock()
	cmd, ok := l.matcher.Key(ev.Code, ev.Value)
	l.mu.Unlock()
	if !ok {
		return
	}
	cmd.Time = xproto.TimeCurrentTime
	select {
	case l.out <- cmd:
	default:
		l.logger.Warn("hotkey dropped, daemon busy", "action", cmd.Action, "target", cmd.Target)
	}
}
