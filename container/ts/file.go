/*
NAME
  file.go

DESCRIPTION
  file.go provides buffered packet-at-a-time reading and writing of
  transport stream files. Inputs must be regular files of whole 188-byte
  packets since the cleaner reads them twice.

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ts

import (
	"bufio"
	"io"
	"os"

	"github.com/Comcast/gots/v2/packet"
	"github.com/pkg/errors"
)

// Errors from the packet file layer.
var (
	ErrNotRegular = errors.New("input is not a regular file")
	ErrFileSize   = errors.New("file size is not a multiple of the packet size")
	ErrSync       = errors.New("missing sync byte")
)

// PacketReader reads a transport stream file packet by packet and can
// rewind to the start.
type PacketReader struct {
	f  *os.File
	br *bufio.Reader
}

// OpenPacketReader opens name for packet reading. The file must be regular
// and hold a whole number of 188-byte packets. The size check rejects
// most 192-byte timestamped files; one that passes it (a multiple of 47
// packets) is left to the sync byte check in ReadPacket.
func OpenPacketReader(name string) (*PacketReader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open input")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "cannot stat input")
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, errors.Wrap(ErrNotRegular, name)
	}
	if info.Size()%PacketSize != 0 {
		f.Close()
		return nil, errors.Wrapf(ErrFileSize, "%s is %d bytes", name, info.Size())
	}
	return &PacketReader{f: f, br: bufio.NewReaderSize(f, 64*PacketSize)}, nil
}

// ReadPacket fills pkt with the next packet. io.EOF signals a clean end of
// file.
func (r *PacketReader) ReadPacket(pkt *packet.Packet) error {
	if _, err := io.ReadFull(r.br, pkt[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return errors.Wrap(err, "cannot read packet")
	}
	if pkt[0] != SyncByte {
		return ErrSync
	}
	return nil
}

// Rewind repositions the reader at the first packet.
func (r *PacketReader) Rewind() error {
	if _, err := r.f.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "cannot rewind input")
	}
	r.br.Reset(r.f)
	return nil
}

// Close closes the underlying file.
func (r *PacketReader) Close() error {
	return r.f.Close()
}

// PacketWriter writes packets to a file through a buffer.
type PacketWriter struct {
	name string
	f    *os.File
	bw   *bufio.Writer
}

// CreatePacketWriter creates (or truncates) name for packet writing.
func CreatePacketWriter(name string) (*PacketWriter, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create output")
	}
	return &PacketWriter{name: name, f: f, bw: bufio.NewWriterSize(f, 64*PacketSize)}, nil
}

// Name returns the path the writer was created with.
func (w *PacketWriter) Name() string { return w.name }

// WritePacket appends one packet to the file.
func (w *PacketWriter) WritePacket(pkt *packet.Packet) error {
	if _, err := w.bw.Write(pkt[:]); err != nil {
		return errors.Wrap(err, "cannot write packet")
	}
	return nil
}

// Close flushes and closes the file.
func (w *PacketWriter) Close() error {
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return errors.Wrap(err, "cannot flush output")
	}
	return w.f.Close()
}

// Abort closes and removes the partially written file.
func (w *PacketWriter) Abort() {
	w.f.Close()
	os.Remove(w.name)
}
