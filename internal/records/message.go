package records

// Message is one entry of a text-message thread. Fields arrive under
// several names depending on the messaging backend.
type Message struct {
	To     string `json:"to"`
	Body   string `json:"body"`
	SentAt string `json:"sent_at"`
	Status string `json:"status"`
	Raw    Fields `json:"-"`
}

// ResolveMessage maps a raw thread entry onto a Message.
func ResolveMessage(raw Fields) Message {
	return Message{
		To:     raw.First(messageToKeys...),
		Body:   firstRaw(raw, messageBodyKeys),
		SentAt: raw.First(messageTimeKeys...),
		Status: raw.First(messageStatusKeys...),
		Raw:    raw,
	}
}

// ResolveMessages resolves a thread, keeping the order it was returned in.
func ResolveMessages(raws []Fields) []Message {
	out := make([]Message, 0, len(raws))
	for _, raw := range raws {
		out = append(out, ResolveMessage(raw))
	}
	return out
}

// firstRaw is First without trimming, so message bodies keep their spacing.
func firstRaw(f Fields, keys []string) string {
	for _, key := range keys {
		if v := f.String(key); v != "" {
			return v
		}
	}
	return ""
}
