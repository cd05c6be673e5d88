package models

// WebhookPayload is the subset of a WhatsApp Cloud API webhook callback the field command channel reads.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry represents one entry payload within the webhook body.
type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

// WebhookChange carries the messages of one notification. Delivery receipts arrive with no messages.
type WebhookChange struct {
	Field string `json:"field"`
	Value struct {
		Messages []InboundMessage `json:"messages"`
	} `json:"value"`
}

// InboundMessage is one message sent to the business number.
type InboundMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Interactive *struct {
		ButtonReply *ReplyOption `json:"button_reply,omitempty"`
		ListReply   *ReplyOption `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
}

// ReplyOption is a pressed button or a selected list row. Its ID carries the command text.
type ReplyOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Body returns the command text of a text or interactive message, or "" for other types.
func (m InboundMessage) Body() string {
	if m.Text != nil {
		return m.Text.Body
	}
	if m.Interactive != nil {
		if m.Interactive.ButtonReply != nil {
			return m.Interactive.ButtonReply.ID
		}
		if m.Interactive.ListReply != nil {
			return m.Interactive.ListReply.ID
		}
	}
	return ""
}
