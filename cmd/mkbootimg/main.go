// mkbootimg - package a raw code/data pair into a task image.
//
// Usage: mkbootimg -code code.bin -data data.bin -sp 0x20001000 -entry 0x08000208 output.img
//
// Writes a task image in the layout the kernel reads directly (no
// intermediate sector format, since the host simulator addresses the
// image in place rather than through a block device):
//
//   offset 0x000..0x0FF: header (code base, code size, data base,
//                        data size, zero-padded to 256 bytes)
//   offset 0x100..0x1FF: 256-byte signature (zero-filled; signing is
//                        an external concern)
//   offset 0x200: initial stack pointer
//   offset 0x204: entry program counter
//   offset 0x208..: code, then data immediately after
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
)

const (
	headerSize    = 0x100
	signatureSize = 0x100
	codeOffset    = 0x208
)

func buildImage(code, data []byte, codeBase, dataBase, sp, entry uint32) []byte {
	total := codeOffset + len(code) + len(data)
	img := make([]byte, total)

	binary.LittleEndian.PutUint32(img[0x00:], codeBase)
	binary.LittleEndian.PutUint32(img[0x04:], uint32(len(code)))
	binary.LittleEndian.PutUint32(img[0x08:], dataBase)
	binary.LittleEndian.PutUint32(img[0x0C:], uint32(len(data)))

	binary.LittleEndian.PutUint32(img[0x200:], sp)
	binary.LittleEndian.PutUint32(img[0x204:], entry)

	copy(img[codeOffset:], code)
	copy(img[codeOffset+len(code):], data)

	return img
}

func main() {
	codePath := flag.String("code", "", "path to raw code segment")
	dataPath := flag.String("data", "", "path to raw data segment")
	codeBase := flag.Uint64("code-base", 0, "code region base address")
	dataBase := flag.Uint64("data-base", 0, "data region base address")
	sp := flag.Uint64("sp", 0, "initial stack pointer")
	entry := flag.Uint64("entry", 0, "entry program counter")
	flag.Usage = usage
	flag.Parse()

	if *codePath == "" || flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}

	code, err := os.ReadFile(*codePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mkbootimg: %v\n", err)
		os.Exit(1)
	}

	var data []byte
	if *dataPath != "" {
		data, err = os.ReadFile(*dataPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mkbootimg: %v\n", err)
			os.Exit(1)
		}
	}

	img := buildImage(code, data, uint32(*codeBase), uint32(*dataBase), uint32(*sp), uint32(*entry))

	if err := os.WriteFile(flag.Arg(0), img, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "mkbootimg: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("mkbootimg: code %d bytes, data %d bytes, header+signature %d bytes\n",
		len(code), len(data), headerSize+signatureSize)
	fmt.Printf("mkbootimg: wrote %d bytes to %s\n", len(img), flag.Arg(0))
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -code code.bin [-data data.bin] -sp 0xADDR -entry 0xADDR output.img\n\n", os.Args[0])
	flag.PrintDefaults()
}
