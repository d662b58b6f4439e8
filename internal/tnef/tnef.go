// Package tnef unpacks Transport Neutral Encapsulation Format blobs
// ("winmail.dat") into a rich-text body and the attachments they carry.
package tnef

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/teamwork/tnef"

	"github.com/wesm/mailextract/internal/rtf"
)

// MIME types under which TNEF blobs are declared.
var MIMETypes = []string{"application/ms-tnef", "application/vnd.ms-tnef"}

// IsTNEFType reports whether the (normalized) MIME type names TNEF.
func IsTNEFType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, t := range MIMETypes {
		if mimeType == t {
			return true
		}
	}
	return false
}

// signature is the little-endian TNEF magic 0x223E9F78.
var signature = []byte{0x78, 0x9f, 0x3e, 0x22}

// LooksLikeTNEF reports whether data starts with the TNEF signature.
func LooksLikeTNEF(data []byte) bool {
	return bytes.HasPrefix(data, signature)
}

// MAPI property tags of interest.
const (
	propRTFCompressed = 0x1009
)

// Attachment is one file recovered from a TNEF blob.
type Attachment struct {
	Name string
	Data []byte
}

// Complete reports whether the attachment was decoded with content.
func (a Attachment) Complete() bool { return len(a.Data) > 0 }

// Result is the decoded content of a TNEF blob.
type Result struct {
	// RTF is the decompressed rich-text body, if the blob carried one.
	RTF string

	Text string
	HTML string

	Attachments []Attachment

	// Problems lists non-fatal decoding issues (e.g. a corrupt RTF body).
	Problems []string
}

// Complete reports whether every recovered attachment has content.
func (r *Result) Complete() bool {
	for _, a := range r.Attachments {
		if !a.Complete() {
			return false
		}
	}
	return true
}

// Decode unpacks a TNEF blob.
func Decode(data []byte) (*Result, error) {
	if !LooksLikeTNEF(data) {
		return nil, fmt.Errorf("tnef: missing signature")
	}
	d, err := tnef.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("tnef: decode: %w", err)
	}
	return fromData(d), nil
}

func fromData(d *tnef.Data) *Result {
	res := &Result{
		Text: string(d.Body),
		HTML: string(d.BodyHTML),
	}
	for _, attr := range d.Attributes {
		if attr.Name != propRTFCompressed || len(attr.Data) == 0 {
			continue
		}
		raw, err := rtf.Decompress(attr.Data)
		if err != nil {
			res.Problems = append(res.Problems, fmt.Sprintf("rtf body: %v", err))
			continue
		}
		res.RTF = string(raw)
		break
	}
	for i, a := range d.Attachments {
		if a == nil {
			continue
		}
		name := strings.TrimRight(strings.TrimSpace(a.Title), "\x00")
		if name == "" {
			name = fmt.Sprintf("attachment-%d", i+1)
		}
		res.Attachments = append(res.Attachments, Attachment{Name: name, Data: a.Data})
	}
	return res
}
