package extract

import (
	"fmt"
	"strings"

	"github.com/wesm/mailextract/internal/textutil"
)

// Output model versions.
const (
	// ModelV1 writes every attachment as its own node.
	ModelV1 = 1
	// ModelV2 also flags inline attachment nodes and stores their bytes as
	// inline objects.
	ModelV2 = 2
)

// Options controls what an extraction writes. The zero value is not useful;
// start from DefaultOptions.
type Options struct {
	KeepOnlyDeepEmptyFolders bool `toml:"keep_only_deep_empty_folders"`
	DropEmptyFolders         bool `toml:"drop_empty_folders"`
	WarnOnMessageProblem     bool `toml:"warn_on_message_problem"`

	// NamesLength caps node names, in runes.
	NamesLength int `toml:"names_length"`

	// DefaultCharset decodes 8-bit text that declares no charset.
	DefaultCharset string `toml:"default_charset"`

	ExtractMessages     bool `toml:"extract_messages"`
	ExtractContacts     bool `toml:"extract_contacts"`
	ExtractAppointments bool `toml:"extract_appointments"`

	// ExtractElementsContent writes archival nodes; ExtractElementsList
	// writes one CSV row per element.
	ExtractElementsContent bool `toml:"extract_elements_content"`
	ExtractElementsList    bool `toml:"extract_elements_list"`

	ExtractMessageTextAsFile        bool `toml:"extract_message_text_as_file"`
	ExtractMessageTextAsMetadata    bool `toml:"extract_message_text_as_metadata"`
	ExtractAttachmentTextAsFile     bool `toml:"extract_attachment_text_as_file"`
	ExtractAttachmentTextAsMetadata bool `toml:"extract_attachment_text_as_metadata"`

	OutputModelVersion int `toml:"output_model_version"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		NamesLength:                  12,
		DefaultCharset:               "windows-1252",
		ExtractMessages:              true,
		ExtractContacts:              true,
		ExtractAppointments:          true,
		ExtractElementsContent:       true,
		ExtractMessageTextAsMetadata: true,
		OutputModelVersion:           ModelV2,
	}
}

// Validate reports the first invalid setting.
func (o Options) Validate() error {
	if o.NamesLength <= 0 {
		return fmt.Errorf("names_length must be positive, got %d", o.NamesLength)
	}
	if o.OutputModelVersion != ModelV1 && o.OutputModelVersion != ModelV2 {
		return fmt.Errorf("output_model_version must be %d or %d, got %d", ModelV1, ModelV2, o.OutputModelVersion)
	}
	if cs := strings.TrimSpace(o.DefaultCharset); cs != "" && textutil.Lookup(cs) == nil {
		return fmt.Errorf("default_charset %q is not a known charset", o.DefaultCharset)
	}
	return nil
}
