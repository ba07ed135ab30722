// flashboot writes a task image built by mkbootimg to a board's
// bootloader over a serial link.
//
// Opening a standard USB serial port asserts DTR, which resets most
// microcontroller boards, so flashboot waits out a settle period after
// opening the port before it starts talking to the bootloader, the
// same way exer/cex/dev's Arduino helper does for the Nano's USB-serial
// reset snoop window.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	"go.bug.st/serial"
)

// resetSettleDelay is how long flashboot waits after opening the port
// for the board's bootloader to finish resetting and start listening.
const resetSettleDelay = 2 * time.Second

// ackByte is what the bootloader replies with after a successful
// image write.
const ackByte = 0x06

func main() {
	device := flag.String("device", "", "serial device, e.g. /dev/ttyACM0")
	baud := flag.Int("baud", 115200, "baud rate")
	timeout := flag.Duration("timeout", 10*time.Second, "ack read timeout")
	flag.Usage = usage
	flag.Parse()

	if *device == "" || flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}

	img, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "flashboot: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(os.Stderr, "flashboot: ", log.LstdFlags)

	port, err := openPort(*device, *baud, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flashboot: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	if err := writeImage(port, img); err != nil {
		fmt.Fprintf(os.Stderr, "flashboot: %v\n", err)
		os.Exit(1)
	}

	ack, err := readByteFor(port, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flashboot: %v\n", err)
		os.Exit(1)
	}
	if ack != ackByte {
		fmt.Fprintf(os.Stderr, "flashboot: unexpected reply 0x%02X\n", ack)
		os.Exit(1)
	}

	logger.Printf("wrote %d bytes, board acknowledged", len(img))
}

// openPort opens the device and waits out the board's reset settle
// period before returning.
func openPort(device string, baud int, logger *log.Logger) (serial.Port, error) {
	mode := &serial.Mode{BaudRate: baud, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, err
	}
	logger.Printf("serial port open, waiting %.0fs for board reset", resetSettleDelay.Seconds())
	time.Sleep(resetSettleDelay)
	return port, nil
}

// writeImage sends a 4-byte little-endian length prefix followed by the
// image bytes, retrying on EINTR exactly as Arduino.writeBytes does.
func writeImage(port serial.Port, img []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(img)))

	if err := writeAllRetry(port, lenBuf[:]); err != nil {
		return err
	}
	return writeAllRetry(port, img)
}

func writeAllRetry(port serial.Port, buf []byte) error {
	for {
		n, err := port.Write(buf)
		if !isRetryableSyscallError(err) {
			if err != nil {
				return err
			}
			if n != len(buf) {
				return fmt.Errorf("short write: wrote %d of %d bytes", n, len(buf))
			}
			return nil
		}
	}
}

func readByteFor(port serial.Port, timeout time.Duration) (byte, error) {
	port.SetReadTimeout(timeout)
	buf := make([]byte, 1)
	for {
		n, err := port.Read(buf)
		if !isRetryableSyscallError(err) {
			if err != nil {
				return 0, err
			}
			if n == 0 {
				return 0, fmt.Errorf("no response after %v", timeout)
			}
			return buf[0], nil
		}
	}
}

func isRetryableSyscallError(err error) bool {
	errno, ok := err.(syscall.Errno)
	return ok && errno == syscall.EINTR
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -device /dev/ttyX [-baud N] image.img\n\n", os.Args[0])
	flag.PrintDefaults()
}
