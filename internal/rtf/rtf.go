package rtf

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// Encapsulation names what an RTF body wraps.
type Encapsulation int

const (
	EncapsulatedNone Encapsulation = iota
	EncapsulatedText
	EncapsulatedHTML
)

func (e Encapsulation) String() string {
	switch e {
	case EncapsulatedText:
		return "text"
	case EncapsulatedHTML:
		return "html"
	default:
		return "none"
	}
}

// headerScan bounds how far into the document the \fromhtml / \fromtext
// markers are looked for; they must precede the font table.
const headerScan = 1024

// Detect reports what, if anything, the RTF document encapsulates.
func Detect(doc string) Encapsulation {
	if !strings.HasPrefix(strings.TrimSpace(doc), "{\\rtf") {
		return EncapsulatedNone
	}
	head := doc
	if len(head) > headerScan {
		head = head[:headerScan]
	}
	if i := strings.Index(head, "\\fonttbl"); i >= 0 {
		head = head[:i]
	}
	switch {
	case strings.Contains(head, "\\fromhtml1"):
		return EncapsulatedHTML
	case strings.Contains(head, "\\fromtext"):
		return EncapsulatedText
	default:
		return EncapsulatedNone
	}
}

// Decapsulate recovers the original body from an encapsulating RTF
// document. It returns EncapsulatedNone and "" when doc wraps nothing.
func Decapsulate(doc string) (Encapsulation, string) {
	switch kind := Detect(doc); kind {
	case EncapsulatedHTML:
		return kind, convert(doc, true)
	case EncapsulatedText:
		return kind, convert(doc, false)
	default:
		return EncapsulatedNone, ""
	}
}

// ToText renders an RTF document as plain text, ignoring formatting.
func ToText(doc string) string {
	return strings.TrimSpace(convert(doc, false))
}

// skipDestinations are groups whose text never belongs to the body.
var skipDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "object": true, "header": true, "footer": true,
	"headerl": true, "headerr": true, "footerl": true, "footerr": true,
	"themedata": true, "colorschememapping": true, "latentstyles": true,
	"datastore": true, "xmlnstbl": true, "listtable": true,
	"listoverridetable": true, "rsidtbl": true, "generator": true,
	"filetbl": true, "revtbl": true, "mmathPr": true, "fldinst": true,
}

var symbolWords = map[string]string{
	"par": "\n", "line": "\n", "tab": "\t", "emdash": "\u2014",
	"endash": "\u2013", "lquote": "\u2018", "rquote": "\u2019",
	"ldblquote": "\u201c", "rdblquote": "\u201d", "bullet": "\u2022",
	"emspace": " ", "enspace": " ", "qmspace": " ",
}

type groupState struct {
	skip    bool
	htmlrtf bool
	htmltag bool
	uc      int
}

type parser struct {
	src  string
	pos  int
	html bool

	stack   []groupState
	st      groupState
	star    bool // last token was \*
	enc     encoding.Encoding
	pending []byte // \'hh bytes awaiting code-page decoding
	skipN   int    // fallback characters left to skip after \u
	out     strings.Builder
}

func convert(doc string, html bool) string {
	p := &parser{src: doc, html: html, enc: charmap.Windows1252, st: groupState{uc: 1}}
	p.run()
	p.flush()
	return p.out.String()
}

func (p *parser) emitting() bool {
	if p.st.skip {
		return false
	}
	if !p.html {
		return true
	}
	return p.st.htmltag || !p.st.htmlrtf
}

func (p *parser) flush() {
	if len(p.pending) == 0 {
		return
	}
	if p.emitting() {
		if s, err := p.enc.NewDecoder().Bytes(p.pending); err == nil {
			p.out.Write(s)
		}
	}
	p.pending = p.pending[:0]
}

func (p *parser) text(s string) {
	if p.skipN > 0 {
		p.skipN--
		return
	}
	p.flush()
	if p.emitting() {
		p.out.WriteString(s)
	}
}

func (p *parser) run() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '{':
			p.flush()
			p.stack = append(p.stack, p.st)
			p.star = false
			p.pos++
		case '}':
			p.flush()
			if n := len(p.stack); n > 0 {
				p.st = p.stack[n-1]
				p.stack = p.stack[:n-1]
			}
			p.star = false
			p.skipN = 0
			p.pos++
		case '\\':
			p.control()
		case '\r', '\n':
			p.pos++
		default:
			p.pos++
			if c >= 0x80 {
				if p.skipN > 0 {
					p.skipN--
					continue
				}
				p.pending = append(p.pending, c)
				continue
			}
			p.text(string(c))
		}
	}
}

// control consumes one control word or control symbol.
func (p *parser) control() {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return
	}
	c := p.src[p.pos]
	if !isLetter(c) {
		p.pos++
		p.symbol(c)
		return
	}

	start := p.pos
	for p.pos < len(p.src) && isLetter(p.src[p.pos]) {
		p.pos++
	}
	word := p.src[start:p.pos]

	hasParam := false
	param := 0
	pstart := p.pos
	if p.pos < len(p.src) && (p.src[p.pos] == '-' || isDigit(p.src[p.pos])) {
		p.pos++
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
		if n, err := strconv.Atoi(p.src[pstart:p.pos]); err == nil {
			param, hasParam = n, true
		}
	}
	if p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
	if word == "bin" {
		// \binN is followed by N raw bytes that may contain braces.
		p.flush()
		if hasParam && param > 0 {
			p.pos = min(p.pos+param, len(p.src))
		}
		return
	}
	p.word(word, param, hasParam)
}

func (p *parser) symbol(c byte) {
	switch c {
	case '\'':
		if p.pos+2 > len(p.src) {
			return
		}
		v, err := strconv.ParseUint(p.src[p.pos:p.pos+2], 16, 8)
		p.pos += 2
		if err != nil {
			return
		}
		if p.skipN > 0 {
			p.skipN--
			return
		}
		p.pending = append(p.pending, byte(v))
	case '*':
		p.star = true
	case '\\', '{', '}':
		p.text(string(c))
	case '~':
		p.text(" ")
	case '_':
		p.text("-")
	case '\r', '\n':
		p.text("\n")
	}
}

func (p *parser) word(word string, param int, hasParam bool) {
	star := p.star
	p.star = false
	p.flush()

	switch {
	case word == "htmltag" || word == "mhtmltag":
		if p.html && word == "htmltag" {
			p.st.htmltag = true
			p.st.skip = false
		} else {
			p.st.skip = true
		}
		return
	case star || skipDestinations[word]:
		p.st.skip = true
		return
	}

	switch word {
	case "htmlrtf":
		p.st.htmlrtf = !hasParam || param != 0
	case "uc":
		if hasParam && param >= 0 {
			p.st.uc = param
		}
	case "u":
		if !hasParam {
			return
		}
		if param < 0 {
			param += 65536
		}
		p.skipN = 0
		p.text(string(rune(param)))
		p.skipN = p.st.uc
	case "ansicpg":
		if enc := codePage(param); enc != nil {
			p.enc = enc
		}
	default:
		if s, ok := symbolWords[word]; ok {
			p.text(s)
		}
	}
}

func codePage(cp int) encoding.Encoding {
	switch cp {
	case 437:
		return charmap.CodePage437
	case 850:
		return charmap.CodePage850
	case 866:
		return charmap.CodePage866
	case 874:
		return charmap.Windows874
	case 932:
		return japanese.ShiftJIS
	case 936:
		return simplifiedchinese.GBK
	case 949:
		return korean.EUCKR
	case 950:
		return traditionalchinese.Big5
	case 1250:
		return charmap.Windows1250
	case 1251:
		return charmap.Windows1251
	case 1252:
		return charmap.Windows1252
	case 1253:
		return charmap.Windows1253
	case 1254:
		return charmap.Windows1254
	case 1255:
		return charmap.Windows1255
	case 1256:
		return charmap.Windows1256
	case 1257:
		return charmap.Windows1257
	case 1258:
		return charmap.Windows1258
	case 10000:
		return charmap.Macintosh
	default:
		return nil
	}
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
