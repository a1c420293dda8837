package model

// UploadMediaRequest is an upload that passed the gate. Everything except
// Data is client-supplied and used for logging only.
type UploadMediaRequest struct {
	FileName     string `validate:"required"`
	DeclaredMIME string
	Size         int64  `validate:"gt=0"`
	Data         []byte `validate:"required,min=1"`
}

// MediaReference is the success body of the upload endpoint.
type MediaReference struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

const MessagePartURLAttachment = "url-attachment"

// MessagePart is the attachment shape the chat client sends after a
// successful upload.
type MessagePart struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
}

func (m MediaReference) AsMessagePart() MessagePart {
	return MessagePart{
		Type:     MessagePartURLAttachment,
		URL:      m.URL,
		MimeType: m.Type,
	}
}
