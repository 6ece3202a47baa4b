// Package serial provides a minimal, Linux-only serial port transport for
// microcontrollers that stream newline-delimited JSON sensor records.
//
// The port is opened in raw mode and read in chunks with a bounded wait, so a
// read loop can check for cancellation on every timeout boundary. Line
// assembly and record decoding live in the decoder and reading packages; the
// thermodash command wires everything into a small dashboard service.
//
// Features:
//   - Raw syscall-based serial I/O on Linux, no buffering delays
//   - Chunk reads with a per-call timeout (poll based)
//   - Killability through a self-pipe; Close unblocks a pending read
//   - DTR/RTS control for firmwares that stay silent until they are raised
//   - USB serial device discovery (ttyUSB*, ttyACM*)
//   - PTY-based tests for reliability
//
// This package does **not** support Windows.
//
// Example usage:
//
//	port, err := serial.Open(serial.Config{
//	    Device:   "/dev/ttyACM0",
//	    BaudRate: 115200,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	buf := make([]byte, 256)
//	for port.IsOpen() {
//	    n, err := port.ReadTimeout(buf, time.Second)
//	    if err != nil {
//	        break
//	    }
//	    fmt.Printf("%q\n", buf[:n])
//	}
package serial
