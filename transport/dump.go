// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"
)

// Dump file layout:
//
//	magic "RTCTRACE" | version (1 byte) | compression (1 byte) | binary frames (1 byte)
//	compressed stream:
//	    { uvarint length | frame bytes }*  uvarint 0  | BLAKE3-256 digest
//
// The digest covers every record byte (length prefixes and frames) up
// to, not including, the zero terminator.
const (
	dumpMagic   = "RTCTRACE"
	dumpVersion = 1
	digestSize  = 32

	// maxDumpRecord guards ReadDump against a corrupt length prefix.
	maxDumpRecord = 64 << 20
)

// ErrDigest is returned by ReadDump when the trailer digest does not
// match the frames read.
var ErrDigest = errors.New("transport: dump digest mismatch")

// Compression selects the dump stream compression. The values are
// stored in the dump header.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "", "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown dump compression %q (want none, lz4 or zstd)", name)
	}
}

// DumpChannel writes frames to a local dump file. It is a Channel, so
// a Transport can be opened on it directly when no collector is
// configured.
type DumpChannel struct {
	mu         sync.Mutex
	file       *os.File
	buffer     *bufio.Writer
	compressor io.WriteCloser
	hasher     *blake3.Hasher
	binary     bool
	closed     bool
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// CreateDump creates (or truncates) the dump file at path. binary
// records whether frames are binary (CBOR) or text (JSON).
func CreateDump(path string, compression Compression, binary bool) (*DumpChannel, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating dump: %w", err)
	}
	channel, err := newDumpChannel(file, compression, binary)
	if err != nil {
		file.Close()
		return nil, err
	}
	return channel, nil
}

func newDumpChannel(file *os.File, compression Compression, binaryFrames bool) (*DumpChannel, error) {
	buffer := bufio.NewWriter(file)
	header := []byte(dumpMagic)
	header = append(header, dumpVersion, byte(compression), boolByte(binaryFrames))
	if _, err := buffer.Write(header); err != nil {
		return nil, fmt.Errorf("writing dump header: %w", err)
	}

	var compressor io.WriteCloser
	switch compression {
	case CompressionNone:
		compressor = nopWriteCloser{buffer}
	case CompressionLZ4:
		compressor = lz4.NewWriter(buffer)
	case CompressionZstd:
		encoder, err := zstd.NewWriter(buffer)
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		compressor = encoder
	default:
		return nil, fmt.Errorf("unsupported dump compression: %s", compression)
	}

	return &DumpChannel{
		file:       file,
		buffer:     buffer,
		compressor: compressor,
		hasher:     blake3.New(),
		binary:     binaryFrames,
	}, nil
}

// WriteMessage appends one frame record. Frames must all be binary or
// all text, matching the value given to CreateDump.
func (d *DumpChannel) WriteMessage(binaryFrame bool, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("dump: refusing to write empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return os.ErrClosed
	}
	if binaryFrame != d.binary {
		return fmt.Errorf("dump: frame binary=%v in a dump created with binary=%v", binaryFrame, d.binary)
	}

	var prefix [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(prefix[:], uint64(len(data)))
	d.hasher.Write(prefix[:n])
	d.hasher.Write(data)
	if _, err := d.compressor.Write(prefix[:n]); err != nil {
		return fmt.Errorf("writing dump record: %w", err)
	}
	if _, err := d.compressor.Write(data); err != nil {
		return fmt.Errorf("writing dump record: %w", err)
	}
	return nil
}

// Close writes the terminator and digest and closes the file.
func (d *DumpChannel) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	trailer := append([]byte{0}, d.hasher.Sum(nil)...)
	errs := []error{}
	if _, err := d.compressor.Write(trailer); err != nil {
		errs = append(errs, fmt.Errorf("writing dump trailer: %w", err))
	}
	if err := d.compressor.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing dump compressor: %w", err))
	}
	if err := d.buffer.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flushing dump: %w", err))
	}
	if err := d.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing dump: %w", err))
	}
	return errors.Join(errs...)
}

// Dump is the decoded content of a dump file.
type Dump struct {
	Compression Compression
	Binary      bool
	Frames      [][]byte
}

// ReadDump reads and verifies a dump. A dump whose writer did not
// close it (no trailer) returns the frames read so far together with
// an error wrapping io.ErrUnexpectedEOF.
func ReadDump(r io.Reader) (*Dump, error) {
	header := make([]byte, len(dumpMagic)+3)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("reading dump header: %w", err)
	}
	if !bytes.Equal(header[:len(dumpMagic)], []byte(dumpMagic)) {
		return nil, fmt.Errorf("not a dump file (bad magic %q)", header[:len(dumpMagic)])
	}
	if version := header[len(dumpMagic)]; version != dumpVersion {
		return nil, fmt.Errorf("unsupported dump version %d", version)
	}
	dump := &Dump{
		Compression: Compression(header[len(dumpMagic)+1]),
		Binary:      header[len(dumpMagic)+2] != 0,
	}

	var stream io.Reader
	switch dump.Compression {
	case CompressionNone:
		stream = r
	case CompressionLZ4:
		stream = lz4.NewReader(r)
	case CompressionZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer decoder.Close()
		stream = decoder
	default:
		return nil, fmt.Errorf("unsupported dump compression: %s", dump.Compression)
	}

	reader := bufio.NewReader(stream)
	hasher := blake3.New()
	for {
		length, err := binary.ReadUvarint(reader)
		if err != nil {
			return dump, fmt.Errorf("reading dump record %d: %w", len(dump.Frames), unexpectedEOF(err))
		}
		if length == 0 {
			break
		}
		if length > maxDumpRecord {
			return dump, fmt.Errorf("dump record %d: length %d exceeds limit", len(dump.Frames), length)
		}
		frame := make([]byte, length)
		if _, err := io.ReadFull(reader, frame); err != nil {
			return dump, fmt.Errorf("reading dump record %d: %w", len(dump.Frames), unexpectedEOF(err))
		}
		var prefix [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(prefix[:], length)
		hasher.Write(prefix[:n])
		hasher.Write(frame)
		dump.Frames = append(dump.Frames, frame)
	}

	digest := make([]byte, digestSize)
	if _, err := io.ReadFull(reader, digest); err != nil {
		return dump, fmt.Errorf("reading dump digest: %w", unexpectedEOF(err))
	}
	if !bytes.Equal(digest, hasher.Sum(nil)) {
		return dump, ErrDigest
	}
	return dump, nil
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func boolByte(value bool) byte {
	if value {
		return 1
	}
	return 0
}
