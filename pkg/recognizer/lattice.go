package recognizer

import (
	"strconv"
	"strings"
)

// Pattern names.
const (
	Word                = "WORD"
	Octet               = "OCTET"
	MAC                 = "MAC"
	IPv4                = "IPv4"
	IPv6                = "IPv6"
	IP                  = "IP"
	HostName            = "HOST_NAME"
	UserName            = "USER_NAME"
	EmailAddr           = "EMAIL_ADDR"
	PhoneNumber         = "PHONE_NUMBER"
	Identifier          = "IDENTIFIER"
	FileExt             = "FILE_EXT"
	FileName            = "FILE_NAME"
	File                = "FILE"
	Directory           = "DIRECTORY"
	RelativeUnixPath    = "RELATIVE_UNIX_PATH"
	AbsoluteUnixPath    = "ABSOLUTE_UNIX_PATH"
	UnixPath            = "UNIX_PATH"
	RelativeWindowsPath = "RELATIVE_WINDOWS_PATH"
	AbsoluteWindowsPath = "ABSOLUTE_WINDOWS_PATH"
	WindowsPath         = "WINDOWS_PATH"
	RelativePath        = "RELATIVE_PATH"
	AbsolutePath        = "ABSOLUTE_PATH"
	Path                = "PATH"
)

// Character classes shared by the lattice.
const (
	digit = `[0-9]`
	hex   = `[0-9A-Fa-f]`
	alpha = `[A-Za-z]`
	alnum = `[A-Za-z0-9]`
)

// lattice holds every pattern in dependency order.
type lattice struct {
	order  []*Pattern
	byName map[string]*Pattern
}

func (l *lattice) add(p *Pattern) *Pattern {
	l.order = append(l.order, p)
	l.byName[p.name] = p
	return p
}

// buildLattice declares the pattern lattice bottom-up. Host names and email
// addresses are validated against tlds.
func buildLattice(tlds *TLDTable) (*lattice, error) {
	l := &lattice{byName: make(map[string]*Pattern)}

	// Words and numbers.
	l.add(define(Word, alpha+`(?:'?`+alpha+`)+`))

	octet := l.add(union(Octet,
		define("250-255", `25[0-5]`),
		define("200-249", `2[0-4]`+digit),
		define("0-199", `(?:[01]`+digit+digit+`|`+digit+digit+`?)`),
	))

	// Network identifiers.
	l.add(define(MAC, hex+`{2}(?::`+hex+`{2}){5}`).withAccept(acceptMAC))

	dottedQuad := octet.expr + `\.` + octet.expr + `\.` + octet.expr + `\.` + octet.expr
	ipv4 := l.add(define(IPv4, dottedQuad+`(?:/`+digit+`{1,2})?`))
	ipv6 := l.add(ipv6Pattern(dottedQuad))
	l.add(union(IP, ipv4, ipv6))

	// Naming identifiers.
	label := alnum + `(?:[A-Za-z0-9-]*` + alnum + `)?`
	hostExpr := `(?:` + label + `\.)+` + label
	l.add(define(HostName, hostExpr).withAccept(func(text string, start, end int) bool {
		return tlds.Contains(lastLabel(text[start:end]))
	}).withResume(resumeAtLastLabel))

	user := l.add(define(UserName, alpha+`[A-Za-z0-9_.]*`))
	l.add(define(EmailAddr, user.expr+`@`+hostExpr).withAccept(func(text string, start, end int) bool {
		return tlds.Contains(lastLabel(text[start:end]))
	}).withResume(resumeAtHost))

	l.add(define(PhoneNumber, `(?:1-)?(?:`+digit+`{3}-)?`+digit+`{3}-`+digit+`{4}(?:x`+digit+`+)?`))
	l.add(define(Identifier, `_*`+alpha+`[A-Za-z0-9_]*`))

	// Filesystem tokens.
	ext := l.add(define(FileExt, `\.`+alnum+`+`))
	name := l.add(define(FileName, `(?:[A-Za-z0-9_-]|\\[ /\\])+`))
	l.add(define(File, name.expr+`(?:`+ext.expr+`)?`))
	dir := l.add(union(Directory,
		name,
		define("..", `\.\.`),
		define(".", `\.`),
	))

	// Path grammars.
	relUnix := l.add(define(RelativeUnixPath, dir.expr+`(?:/`+dir.expr+`)+/?`))
	absUnix := l.add(define(AbsoluteUnixPath, `/(?:`+name.expr+`(?:/`+name.expr+`)*/?)?`))
	l.add(union(UnixPath, relUnix, absUnix))

	relWin := l.add(define(RelativeWindowsPath, dir.expr+`(?:\\`+dir.expr+`)+\\?`))
	absWin := l.add(define(AbsoluteWindowsPath, alpha+`:\\(?:`+name.expr+`(?:\\`+name.expr+`)*\\?)?`))
	l.add(union(WindowsPath, relWin, absWin))

	l.add(union(RelativePath, relUnix, relWin))
	l.add(union(AbsolutePath, absUnix, absWin))
	l.add(union(Path, relUnix, absUnix, relWin, absWin))

	for _, p := range l.order {
		if err := p.compile(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// ipv6Pattern lists the IPv6 notations from the most specific to the least
// specific so that a compressed form never claims a prefix of a fully
// written address.
func ipv6Pattern(dottedQuad string) *Pattern {
	const group = hex + `{1,4}`
	cidr := `(?:/` + digit + `{1,3})?`

	// groups renders n colon-separated groups, n >= 1.
	groups := func(n int) string {
		if n == 1 {
			return group
		}
		return group + `(?::` + group + `){` + strconv.Itoa(n-1) + `}`
	}

	// Compressed forms are enumerated by the number of groups before "::".
	// Each variant requires exactly that many, so at most one can apply at a
	// given position.
	var mapped, compressed []string
	for left := 5; left >= 0; left-- {
		head := "::"
		if left > 0 {
			head = groups(left) + "::"
		}
		mapped = append(mapped, head+`(?:`+group+`:){0,`+strconv.Itoa(5-left)+`}`+dottedQuad)
	}
	for left := 7; left >= 0; left-- {
		head := "::"
		if left > 0 {
			head = groups(left) + "::"
		}
		if left == 7 {
			compressed = append(compressed, head)
			continue
		}
		compressed = append(compressed, head+`(?:`+group+`(?::`+group+`){0,`+strconv.Itoa(6-left)+`})?`)
	}

	return union(IPv6,
		define("expanded", groups(8)+cidr),
		define("ipv4-embedded", `(?:`+group+`:){6}`+dottedQuad+cidr),
		define("ipv4-compressed", `(?:`+strings.Join(mapped, "|")+`)`+cidr),
		define("compressed", `(?:`+strings.Join(compressed, "|")+`)`+cidr),
	)
}

// acceptMAC rejects candidates that are part of a longer hex run, either a
// group with more than two digits or a seventh group.
func acceptMAC(text string, start, end int) bool {
	if start > 0 {
		prev := text[start-1]
		if isHex(prev) {
			return false
		}
		if prev == ':' && start > 1 && isHex(text[start-2]) {
			return false
		}
	}
	if end < len(text) {
		next := text[end]
		if isHex(next) {
			return false
		}
		if next == ':' && end+1 < len(text) && isHex(text[end+1]) {
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// resumeAtLastLabel skips a rejected host name up to its last label. Every
// candidate starting earlier inside it ends with the same rejected label.
func resumeAtLastLabel(text string, start, end int) int {
	return start + strings.LastIndexByte(text[start:end], '.') + 1
}

// resumeAtHost skips the user part of a rejected email address. The host part
// may still hold the user part of a later address.
func resumeAtHost(text string, start, end int) int {
	return start + strings.IndexByte(text[start:end], '@') + 1
}

// lastLabel returns the text after the final dot.
func lastLabel(host string) string {
	if i := strings.LastIndexByte(host, '.'); i >= 0 {
		return host[i+1:]
	}
	return host
}
