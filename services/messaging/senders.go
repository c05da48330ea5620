package messagingsvc

import (
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/notification"
)

// NewSenders registers `email` for email notifications, and Twilio for SMS and WhatsApp when it is
// configured, else a ConsoleSender.
func NewSenders(conf *core.Config, email notification.Sender, logger core.Logger) notification.Senders {
	var phone notification.Sender
	if conf.TwilioEnabled() {
		phone = NewTwilioSender(conf, logger)
	} else {
		phone = NewConsoleSender(logger)
	}
	return notification.Senders{
		notification.MethodEmail:    email,
		notification.MethodSMS:      phone,
		notification.MethodWhatsApp: phone,
	}
}
