package serial

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned by reads on a Port that has been closed.
var ErrClosed = errors.New("serial port closed")

// DefaultBaudRate is used when Config.BaudRate is zero or unsupported.
const DefaultBaudRate = 115200

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device   string
	BaudRate int
	DTR      bool // raise DTR after open
	RTS      bool // raise RTS after open
}

// Port provides low-latency, killable, chunk-oriented access to a Linux serial port.
// Close may be called from any goroutine to unblock a pending read.
type Port struct {
	fd        int
	file      *os.File
	done      chan struct{}
	closeOnce sync.Once
	config    Config
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd
}

// Open opens a serial port using the provided Config and returns a Port.
// The port is configured for raw 8N1, non-canonical operation.
func Open(cfg Config) (*Port, error) {
	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0666)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	baud := baudToUnix(cfg.BaudRate)
	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud
	termios.Ispeed = baud
	termios.Ospeed = baud

	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set termios: %w", err)
	}

	// Blocking again now that config is done; readiness comes from poll.
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	pipeFds := make([]int, 2)
	if err := unix.Pipe(pipeFds); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	return &Port{
		fd:     fd,
		file:   os.NewFile(uintptr(fd), cfg.Device),
		done:   make(chan struct{}),
		config: cfg,
		pipeR:  pipeFds[0],
		pipeW:  pipeFds[1],
	}, nil
}

// Device returns the path the port was opened with.
func (p *Port) Device() string { return p.config.Device }

// IsOpen reports whether Close has not been called yet.
func (p *Port) IsOpen() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// ReadTimeout waits up to d for data and reads whatever is available into buf.
// A zero d blocks until data arrives or the port is closed. It returns (0, nil) when the timeout elapses, ErrClosed once the port is
// closed, and io.EOF when the device hung up without pending data.
func (p *Port) ReadTimeout(buf []byte, d time.Duration) (int, error) {
	if !p.IsOpen() {
		return 0, ErrClosed
	}
	ms := -1
	if d > 0 {
		ms = int(d / time.Millisecond)
		if ms == 0 {
			ms = 1
		}
	}
	pfd := []unix.PollFd{
		{Fd: int32(p.fd), Events: unix.POLLIN},
		{Fd: int32(p.pipeR), Events: unix.POLLIN},
	}
	for {
		n, err := unix.Poll(pfd, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			return 0, nil
		}
		break
	}
	select {
	case <-p.done:
		return 0, ErrClosed
	default:
	}
	if pfd[1].Revents&unix.POLLIN != 0 {
		return 0, ErrClosed
	}
	if pfd[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
		return 0, nil
	}
	n, err := p.file.Read(buf)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes raw bytes to the serial port.
func (p *Port) Write(b []byte) (int, error) {
	if !p.IsOpen() {
		return 0, ErrClosed
	}
	return p.file.Write(b)
}

// SetDTR raises or drops the DTR modem line.
func (p *Port) SetDTR(on bool) error {
	return p.setModemBit(unix.TIOCM_DTR, on)
}

// SetRTS raises or drops the RTS modem line.
func (p *Port) SetRTS(on bool) error {
	return p.setModemBit(unix.TIOCM_RTS, on)
}

func (p *Port) setModemBit(bit int, on bool) error {
	req := uint(unix.TIOCMBIC)
	if on {
		req = unix.TIOCMBIS
	}
	if err := unix.IoctlSetPointerInt(p.fd, req, bit); err != nil {
		return fmt.Errorf("modem control: %w", err)
	}
	return nil
}

// Close closes the serial port and unblocks any pending ReadTimeout call.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		// Wake up poll using self-pipe
		unix.Write(p.pipeW, []byte{1})
		err = p.file.Close()
		unix.Close(p.pipeR)
		unix.Close(p.pipeW)
	})
	return err
}

func baudToUnix(baud int) uint32 {
	switch baud {
	case 9600:
		return unix.B9600
	case 19200:
		return unix.B19200
	case 38400:
		return unix.B38400
	case 57600:
		return unix.B57600
	case 115200:
		return unix.B115200
	case 230400:
		return unix.B230400
	default:
		return unix.B115200 // fallback
	}
}
