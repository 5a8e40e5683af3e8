package pst

// RecipientType distinguishes To/Cc/Bcc rows of a recipient table.
type RecipientType int32

const (
	RecipientTo  RecipientType = 1
	RecipientCc  RecipientType = 2
	RecipientBcc RecipientType = 3
)

func (t RecipientType) String() string {
	switch t {
	case RecipientTo:
		return "To"
	case RecipientCc:
		return "Cc"
	case RecipientBcc:
		return "Bcc"
	default:
		return "Unknown"
	}
}

// Recipient is one decoded row of a message's recipient table.
type Recipient struct {
	DisplayName string
	SmtpAddress string
	Type        RecipientType
}
