// Package payload reads offline pcap and pcapng captures and hands out the
// application payloads they carry: reassembled TCP byte streams (one per
// direction) and individual UDP datagrams.
package payload

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/google/gopacket/tcpassembly"

	"github.com/endorses/lexicat/internal/pkg/constants"
	"github.com/endorses/lexicat/internal/pkg/logger"
)

// ErrUnsupportedCapture is returned for input that is neither pcap nor pcapng.
var ErrUnsupportedCapture = errors.New("unsupported capture format")

// Capture formats.
const (
	FormatPcap   = "pcap"
	FormatPcapNG = "pcapng"
)

// Transports.
const (
	TransportTCP = "tcp"
	TransportUDP = "udp"
)

// flushEvery is how many packets pass between flushes of idle TCP streams.
const flushEvery = 4096

// streamIdleTimeout is how long a TCP stream may stay silent, in capture
// time, before its buffered data is emitted.
const streamIdleTimeout = 2 * time.Minute

// Packet is a raw captured packet kept alongside a payload.
type Packet struct {
	CaptureInfo gopacket.CaptureInfo
	Data        []byte
}

// Payload is application data extracted from a capture.
type Payload struct {
	Source    string
	Flow      string
	Transport string
	Timestamp time.Time
	Data      []byte
	// Truncated is set when a TCP stream exceeded Config.MaxStreamBytes.
	Truncated bool
	// Packets holds the packets the payload was built from when
	// Config.KeepPackets is set.
	Packets []Packet
}

// Config controls extraction.
type Config struct {
	// MaxStreamBytes caps the data kept per TCP direction.
	// <= 0 uses constants.DefaultMaxStreamSize.
	MaxStreamBytes int
	// KeepPackets attaches the contributing packets to each payload.
	KeepPackets bool
}

// Stats counts what was read.
type Stats struct {
	Packets      int
	TCPStreams   int
	UDPDatagrams int
	Skipped      int
}

type packetSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// Capture is an opened capture file.
type Capture struct {
	format   string
	linkType layers.LinkType
	src      packetSource
	stats    Stats
}

// Open detects the capture format of r from its magic number.
func Open(r io.Reader) (*Capture, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedCapture, err)
	}

	switch binary.BigEndian.Uint32(magic) {
	case 0xa1b2c3d4, 0xd4c3b2a1, 0xa1b23c4d, 0x4d3cb2a1:
		pr, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedCapture, err)
		}
		return &Capture{format: FormatPcap, linkType: pr.LinkType(), src: pr}, nil
	case 0x0a0d0d0a:
		nr, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedCapture, err)
		}
		return &Capture{format: FormatPcapNG, linkType: nr.LinkType(), src: nr}, nil
	default:
		return nil, fmt.Errorf("%w: magic %#x", ErrUnsupportedCapture, magic)
	}
}

// Format returns FormatPcap or FormatPcapNG.
func (c *Capture) Format() string {
	return c.format
}

// LinkType returns the link type of the capture.
func (c *Capture) LinkType() layers.LinkType {
	return c.linkType
}

// Stats returns the counters of the last Payloads call.
func (c *Capture) Stats() Stats {
	return c.stats
}

// Payloads reads the whole capture and calls fn for every payload. UDP
// payloads are delivered as their packet is read; a TCP direction is
// delivered when its connection closes, when it has been idle for a while,
// or when the capture ends. Returning an error from fn stops the read.
func (c *Capture) Payloads(ctx context.Context, source string, cfg Config, fn func(Payload) error) error {
	if cfg.MaxStreamBytes <= 0 {
		cfg.MaxStreamBytes = constants.DefaultMaxStreamSize
	}

	factory := newStreamFactory(source, cfg, fn)
	assembler := tcpassembly.NewAssembler(tcpassembly.NewStreamPool(factory))
	c.stats = Stats{}

	var last time.Time
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, ci, err := c.src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: read packet %d: %w", source, c.stats.Packets+1, err)
		}
		c.stats.Packets++
		last = ci.Timestamp

		packet := gopacket.NewPacket(data, c.linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		network := packet.NetworkLayer()
		if network == nil {
			c.stats.Skipped++
			continue
		}

		switch transport := packet.TransportLayer().(type) {
		case *layers.TCP:
			key := streamKey{network.NetworkFlow(), transport.TransportFlow()}
			assembler.AssembleWithTimestamp(key.net, transport, ci.Timestamp)
			if cfg.KeepPackets {
				factory.keep(key, Packet{CaptureInfo: ci, Data: data})
			}
		case *layers.UDP:
			if len(transport.Payload) == 0 {
				continue
			}
			c.stats.UDPDatagrams++
			p := Payload{
				Source:    source,
				Flow:      flowString(network.NetworkFlow(), transport.TransportFlow()),
				Transport: TransportUDP,
				Timestamp: ci.Timestamp,
				Data:      transport.Payload,
			}
			if cfg.KeepPackets {
				p.Packets = []Packet{{CaptureInfo: ci, Data: data}}
			}
			if err := fn(p); err != nil {
				return err
			}
		default:
			c.stats.Skipped++
		}

		if factory.err != nil {
			return factory.err
		}
		if c.stats.Packets%flushEvery == 0 {
			assembler.FlushOlderThan(last.Add(-streamIdleTimeout))
			if factory.err != nil {
				return factory.err
			}
		}
	}

	assembler.FlushAll()
	c.stats.TCPStreams = factory.streams
	logger.Debug("Read capture",
		"source", source,
		"format", c.format,
		"packets", c.stats.Packets,
		"tcp_streams", c.stats.TCPStreams,
		"udp_datagrams", c.stats.UDPDatagrams)
	return factory.err
}

// Read detects the format of r and streams its payloads to fn.
func Read(ctx context.Context, r io.Reader, source string, cfg Config, fn func(Payload) error) (*Capture, error) {
	c, err := Open(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return c, c.Payloads(ctx, source, cfg, fn)
}

// ReadFile opens a capture file and streams its payloads to fn.
func ReadFile(ctx context.Context, path string, cfg Config, fn func(Payload) error) (*Capture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(ctx, f, path, cfg, fn)
}

func flowString(net, transport gopacket.Flow) string {
	return fmt.Sprintf("%s:%s->%s:%s", net.Src(), transport.Src(), net.Dst(), transport.Dst())
}
