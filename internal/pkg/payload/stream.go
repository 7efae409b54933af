package payload

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/tcpassembly"
)

type streamKey struct {
	net, transport gopacket.Flow
}

// streamFactory creates one stream per TCP direction. The assembler is
// driven from a single goroutine, so no locking is needed.
type streamFactory struct {
	source  string
	cfg     Config
	emit    func(Payload) error
	active  map[streamKey]*stream
	streams int
	err     error
}

func newStreamFactory(source string, cfg Config, emit func(Payload) error) *streamFactory {
	return &streamFactory{
		source: source,
		cfg:    cfg,
		emit:   emit,
		active: make(map[streamKey]*stream),
	}
}

// New implements tcpassembly.StreamFactory.
func (f *streamFactory) New(net, transport gopacket.Flow) tcpassembly.Stream {
	s := &stream{factory: f, key: streamKey{net, transport}}
	f.active[s.key] = s
	return s
}

// keep attaches a raw packet to the open stream it belongs to.
func (f *streamFactory) keep(key streamKey, p Packet) {
	s, ok := f.active[key]
	if !ok || s.payload.Truncated {
		return
	}
	s.payload.Packets = append(s.payload.Packets, p)
}

func (f *streamFactory) done(s *stream) {
	delete(f.active, s.key)
	if len(s.payload.Data) == 0 || f.err != nil {
		return
	}
	f.streams++
	f.err = f.emit(s.payload)
}

// stream buffers one direction of a TCP connection.
type stream struct {
	factory *streamFactory
	key     streamKey
	payload Payload
}

// Reassembled implements tcpassembly.Stream.
func (s *stream) Reassembled(reassembly []tcpassembly.Reassembly) {
	p := &s.payload
	if p.Flow == "" {
		p.Source = s.factory.source
		p.Flow = flowString(s.key.net, s.key.transport)
		p.Transport = TransportTCP
	}

	limit := s.factory.cfg.MaxStreamBytes
	for _, r := range reassembly {
		if len(r.Bytes) == 0 {
			continue
		}
		if p.Timestamp.IsZero() {
			p.Timestamp = r.Seen
		}
		if p.Truncated {
			continue
		}
		room := limit - len(p.Data)
		if len(r.Bytes) > room {
			p.Data = append(p.Data, r.Bytes[:room]...)
			p.Truncated = true
			continue
		}
		p.Data = append(p.Data, r.Bytes...)
	}
}

// ReassemblyComplete implements tcpassembly.Stream.
func (s *stream) ReassemblyComplete() {
	s.factory.done(s)
}
