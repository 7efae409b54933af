// Package pcapwriter writes selected packets back out as a pcap file, e.g.
// the packets whose payloads produced watchlist hits.
package pcapwriter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/endorses/lexicat/internal/pkg/constants"
	"github.com/endorses/lexicat/internal/pkg/logger"
)

// ErrClosed is returned when writing to a closed Writer.
var ErrClosed = errors.New("pcap writer is closed")

// Writer writes packets in the classic pcap format. It is safe for
// concurrent use.
type Writer struct {
	mu       sync.Mutex
	name     string
	out      io.Writer
	closer   io.Closer
	writer   *pcapgo.Writer
	linkType layers.LinkType

	headerWritten bool
	closed        bool
	packets       int64
	bytes         int64
}

// New writes to w. The file header is written with the first packet so an
// empty capture produces no output.
func New(w io.Writer, linkType layers.LinkType) *Writer {
	return &Writer{
		name:     "stream",
		out:      w,
		writer:   pcapgo.NewWriter(w),
		linkType: linkType,
	}
}

// Create writes to a new file at path.
func Create(path string, linkType layers.LinkType) (*Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create PCAP file: %w", err)
	}

	w := New(f, linkType)
	w.name = path
	w.closer = f
	return w, nil
}

// WritePacket appends one packet.
func (w *Writer) WritePacket(ci gopacket.CaptureInfo, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if !w.headerWritten {
		if err := w.writer.WriteFileHeader(constants.MaxSnapLen, w.linkType); err != nil {
			return fmt.Errorf("failed to write PCAP header: %w", err)
		}
		w.headerWritten = true
		logger.Debug("Wrote PCAP header", "file", w.name, "link_type", w.linkType)
	}

	// pcapgo rejects a capture length that disagrees with the data.
	ci.CaptureLength = len(data)
	if ci.Length < ci.CaptureLength {
		ci.Length = ci.CaptureLength
	}
	if err := w.writer.WritePacket(ci, data); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	w.packets++
	w.bytes += int64(len(data))
	return nil
}

// Close closes the underlying file, if the Writer owns one.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.closer != nil {
		if err := w.closer.Close(); err != nil {
			return fmt.Errorf("failed to close PCAP file: %w", err)
		}
	}
	logger.Debug("Closed PCAP writer", "file", w.name, "packets", w.packets, "bytes", w.bytes)
	return nil
}

// Stats returns the number of packets and bytes written.
func (w *Writer) Stats() (packets, bytes int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.packets, w.bytes
}
