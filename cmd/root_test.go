package cmd

import (
	"bytes"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endorses/lexicat/cmd/patterns"
	"github.com/endorses/lexicat/internal/pkg/cmdutil"
	"github.com/endorses/lexicat/internal/pkg/pcapwriter"
	"github.com/endorses/lexicat/internal/pkg/report"
	"github.com/endorses/lexicat/internal/pkg/version"
	"github.com/endorses/lexicat/pkg/recognizer"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Cleanup(viper.Reset)
	cfgFile = ""

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func decodeRecords(t *testing.T, stdout string) []report.Record {
	t.Helper()
	var records []report.Record
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		if line == "" {
			continue
		}
		var rec report.Record
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		records = append(records, rec)
	}
	return records
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name:     "No arguments shows help",
			args:     []string{},
			contains: []string{"lexical artifact recognizer", "patterns", "scan", "extract"},
		},
		{
			name:     "Help flag",
			args:     []string{"--help"},
			contains: []string{"--tld-file", "--log-level"},
		},
		{
			name:     "Version flag",
			args:     []string{"--version"},
			contains: []string{"commit:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, "", tt.args...)
			require.NoError(t, res.err)
			for _, want := range tt.contains {
				assert.Contains(t, res.stdout, want)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	res := execute(t, "", "version")
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "lexicat "))

	res = execute(t, "", "version", "--json")
	require.NoError(t, res.err)

	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &info))
	assert.Equal(t, version.Get(), info)
}

func TestPatternsCommand(t *testing.T) {
	res := execute(t, "", "patterns")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "NAME")
	assert.Contains(t, res.stdout, "IPv6")
	assert.Contains(t, res.stdout, "RELATIVE_UNIX_PATH,ABSOLUTE_UNIX_PATH")
	assert.NotContains(t, res.stdout, "REGEX")

	res = execute(t, "", "patterns", "--json", "--regex")
	require.NoError(t, res.err)

	var infos []patterns.Info
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &infos))
	require.Len(t, infos, len(recognizer.PatternNames()))
	assert.Equal(t, recognizer.Word, infos[0].Name)
	assert.NotEmpty(t, infos[0].Regex)
	assert.Equal(t, recognizer.Path, infos[len(infos)-1].Name)
}

func TestMatchCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		want     string
		wantCode int
	}{
		{
			name: "leftmost match",
			args: []string{"match", "IP", "gateway is 192.168.1.1"},
			want: "192.168.1.1",
		},
		{
			name: "offset",
			args: []string{"match", "WORD", "the quick fox", "--offset", "4"},
			want: "quick",
		},
		{
			name: "anchored at offset",
			args: []string{"match", "IPv4", "x 1.2.3.4", "--offset", "2", "--at"},
			want: "1.2.3.4",
		},
		{
			name:     "anchored miss",
			args:     []string{"match", "IPv4", "x 1.2.3.4", "--offset", "1", "--at"},
			wantCode: cmdutil.ExitNoMatch,
		},
		{
			name:     "no match",
			args:     []string{"match", "EMAIL_ADDR", "nothing here"},
			wantCode: cmdutil.ExitNoMatch,
		},
		{
			name:     "unknown pattern",
			args:     []string{"match", "URL", "http://example.com"},
			wantCode: cmdutil.ExitValidationError,
		},
		{
			name:     "offset out of range",
			args:     []string{"match", "WORD", "abc", "--offset", "9"},
			wantCode: cmdutil.ExitValidationError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, "", tt.args...)
			assert.Equal(t, tt.wantCode, cmdutil.ExitCode(res.err))
			if tt.wantCode != cmdutil.ExitSuccess {
				assert.Empty(t, res.stdout)
				return
			}

			var m recognizer.Match
			require.NoError(t, json.Unmarshal([]byte(res.stdout), &m))
			assert.Equal(t, tt.want, m.Text)
		})
	}
}

func TestScanCommandStdin(t *testing.T) {
	res := execute(t, "contact alice@example.com\n", "scan", "-p", "EMAIL_ADDR")
	require.NoError(t, res.err)

	records := decodeRecords(t, res.stdout)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "-", rec.Source)
	assert.Equal(t, recognizer.EmailAddr, rec.Pattern)
	assert.Equal(t, "alice@example.com", rec.Value)
	assert.Equal(t, "example.com", rec.Domain)
	assert.Equal(t, 1, rec.Line)
	assert.Equal(t, 9, rec.Column)
	assert.NotEmpty(t, rec.ScanID)
	assert.Contains(t, res.stderr, "Scan finished")
}

func TestScanCommandFilesWithWatchlist(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.log"), []byte("from 10.0.0.7 to 8.8.8.8\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.log"), []byte("nothing to see\n"), 0o644))

	res := execute(t, "", "scan", dir, "-p", "IPv4", "--watch", "IPv4=10.0.*", "--only-watched", "-o", "text")
	require.NoError(t, res.err)
	assert.Equal(t, filepath.Join(dir, "a.log")+":1:6\tIPv4\t\"10.0.0.7\"\twatch=IPv4=10.0.*\n", res.stdout)
}

func TestScanCommandErrors(t *testing.T) {
	res := execute(t, "", "scan", "--only-watched")
	assert.Equal(t, cmdutil.ExitValidationError, cmdutil.ExitCode(res.err))

	res = execute(t, "", "scan", "--watch", "NOPE=x")
	assert.Equal(t, cmdutil.ExitValidationError, cmdutil.ExitCode(res.err))

	res = execute(t, "", "scan", "-p", "NOPE")
	assert.Equal(t, cmdutil.ExitValidationError, cmdutil.ExitCode(res.err))

	res = execute(t, "", "scan", "-o", "xml")
	assert.Equal(t, cmdutil.ExitValidationError, cmdutil.ExitCode(res.err))

	res = execute(t, "just words\n", "scan", "-p", "IP")
	assert.Equal(t, cmdutil.ExitNoMatch, cmdutil.ExitCode(res.err))
}

func TestScanCommandConfigFile(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte(`scan:
  patterns: [IPv4]
watchlist:
  - "IPv4=1.2.*"
`), 0o644))

	res := execute(t, "1.2.3.4 a@b.com 5.6.7.8\n", "--config", config, "scan")
	require.NoError(t, res.err)

	records := decodeRecords(t, res.stdout)
	require.Len(t, records, 2)
	assert.Equal(t, "1.2.3.4", records[0].Value)
	assert.Equal(t, "IPv4=1.2.*", records[0].Watch)
	assert.Equal(t, "5.6.7.8", records[1].Value)
	assert.Empty(t, records[1].Watch)
}

func TestScanCommandTLDFile(t *testing.T) {
	tlds := filepath.Join(t.TempDir(), "tlds.txt")
	require.NoError(t, os.WriteFile(tlds, []byte("# local\nLAN\n"), 0o644))

	res := execute(t, "ping printer.office.lan\n", "--tld-file", tlds, "scan", "-p", "HOST_NAME")
	require.NoError(t, res.err)

	records := decodeRecords(t, res.stdout)
	require.Len(t, records, 1)
	assert.Equal(t, "printer.office.lan", records[0].Value)
}

func writeUDPCapture(t *testing.T, path string, payloads ...string) {
	t.Helper()
	w, err := pcapwriter.Create(path, layers.LinkTypeEthernet)
	require.NoError(t, err)

	for i, p := range payloads {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
			DstMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x66},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IPv4(10, 0, 0, 1),
			DstIP:    net.IPv4(10, 0, 0, 2),
		}
		udp := &layers.UDP{SrcPort: 5353, DstPort: 53}
		require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(p)))

		ci := gopacket.CaptureInfo{Timestamp: time.Unix(1760000000+int64(i), 0)}
		require.NoError(t, w.WritePacket(ci, buf.Bytes()))
	}
	require.NoError(t, w.Close())
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	capture := filepath.Join(dir, "trace.pcap")
	hits := filepath.Join(dir, "hits.pcap")
	writeUDPCapture(t, capture, "mail alice@example.com", "mail bob@example.org", "no artifacts")

	res := execute(t, "", "extract", "-r", capture, "-p", "EMAIL_ADDR",
		"--watch", "EMAIL_ADDR=alice", "--write-hits", hits)
	require.NoError(t, res.err)

	records := decodeRecords(t, res.stdout)
	require.Len(t, records, 2)
	assert.Equal(t, "alice@example.com", records[0].Value)
	assert.Equal(t, "10.0.0.1:5353->10.0.0.2:53", records[0].Flow)
	assert.Equal(t, capture, records[0].Source)
	require.NotNil(t, records[0].Timestamp)
	assert.Equal(t, int64(1760000000), records[0].Timestamp.Unix())
	assert.Equal(t, "EMAIL_ADDR=alice", records[0].Watch)
	assert.Empty(t, records[1].Watch)

	f, err := os.Open(hits)
	require.NoError(t, err)
	defer f.Close()
	r, err := pcapgo.NewReader(f)
	require.NoError(t, err)

	data, _, err := r.ReadPacketData()
	require.NoError(t, err)
	assert.Contains(t, string(data), "alice@example.com")
	_, _, err = r.ReadPacketData()
	assert.Error(t, err, "only the watched datagram is written")
}

func TestExtractCommandErrors(t *testing.T) {
	res := execute(t, "", "extract")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "read-file")

	notCapture := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notCapture, []byte("plain text"), 0o644))
	res = execute(t, "", "extract", "-r", notCapture)
	assert.Equal(t, cmdutil.ExitValidationError, cmdutil.ExitCode(res.err))

	res = execute(t, "", "extract", "-r", filepath.Join(t.TempDir(), "missing.pcap"))
	assert.Equal(t, cmdutil.ExitValidationError, cmdutil.ExitCode(res.err))
}
