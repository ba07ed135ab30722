// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.

package kernel

// Task image layout offsets.
const (
	imageHeaderOffset    = 0x000
	imageSignatureOffset = 0x100
	imageSPOffset        = 0x200
	imagePCOffset        = 0x204
	imageCodeOffset      = 0x208

	imageHeaderSize    = imageSignatureOffset - imageHeaderOffset
	imageSignatureSize = imageSPOffset - imageSignatureOffset
)

// header field offsets within the 0x000..0x0FF metadata block.
const (
	hdrCodeBase = 0x00
	hdrCodeSize = 0x04
	hdrDataBase = 0x08
	hdrDataSize = 0x0C
)

// ReadImage parses the task image stored at addr in mem into an
// ImageInfo. The 256-byte signature block is opaque to the kernel;
// callers needing it use the ImageValidator hook instead.
func ReadImage(mem *Memory, addr uint32) ImageInfo {
	return ImageInfo{
		CodeBase:  mem.ReadWord(addr + hdrCodeBase),
		CodeSize:  mem.ReadWord(addr + hdrCodeSize),
		DataBase:  mem.ReadWord(addr + hdrDataBase),
		DataSize:  mem.ReadWord(addr + hdrDataSize),
		InitialSP: mem.ReadWord(addr + imageSPOffset),
		EntryPC:   mem.ReadWord(addr + imagePCOffset),
	}
}

// ImageCodeOffset returns the byte offset at which a task image's code
// begins, for tools that build images (cmd/mkbootimg).
func ImageCodeOffset() uint32 { return imageCodeOffset }
