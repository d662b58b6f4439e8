package extract

import "time"

// Metadata keys written to archival nodes.
const (
	MetaSystemID  = "SystemId"
	MetaTitle     = "Title"
	MetaScheme    = "Scheme"
	MetaStartDate = "StartDate"
	MetaEndDate   = "EndDate"

	MetaSubject         = "Subject"
	MetaMessageID       = "MessageId"
	MetaFrom            = "From"
	MetaTo              = "To"
	MetaCc              = "Cc"
	MetaBcc             = "Bcc"
	MetaReplyTo         = "ReplyTo"
	MetaReturnPath      = "ReturnPath"
	MetaSentDate        = "SentDate"
	MetaReceivedDate    = "ReceivedDate"
	MetaInReplyTo       = "InReplyTo"
	MetaReferences      = "References"
	MetaImportance      = "Importance"
	MetaSensitivity     = "Sensitivity"
	MetaAttachmentCount = "AttachmentCount"
	MetaTextContent     = "TextContent"

	MetaFilename  = "Filename"
	MetaMIMEType  = "MimeType"
	MetaContentID = "ContentId"
	MetaDate      = "Date"
	MetaSize      = "Size"
	MetaInline    = "Inline"

	MetaFullName     = "FullName"
	MetaGivenName    = "GivenName"
	MetaSurname      = "Surname"
	MetaNickname     = "Nickname"
	MetaOrganization = "Organization"
	MetaJobTitle     = "JobTitle"
	MetaEmail        = "Email"
	MetaPhone        = "Phone"
	MetaAddress      = "Address"
	MetaBirthday     = "Birthday"
	MetaNote         = "Note"

	MetaLocation    = "Location"
	MetaOrganizer   = "Organizer"
	MetaAttendee    = "Attendee"
	MetaDescription = "Description"
	MetaRecurrence  = "Recurrence"
	MetaUID         = "UID"
	MetaSequence    = "Sequence"
	MetaDeleted     = "Deleted"
	MetaParentUID   = "ParentUID"
)

// Placeholders for required message fields the store left empty.
const (
	NoSubject   = "(no subject)"
	NoMessageID = "(no message id)"
)

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
