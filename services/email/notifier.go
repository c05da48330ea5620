package emailsvc

import (
	"context"
	"net/mail"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/notification"
)

const noticeTemplate = "attendance_notice"

type noticeData struct {
	ToName  string
	Subject string
	Body    string
}

type notifier struct {
	svc core.EmailService
}

var _ notification.Sender = (*notifier)(nil) // interface compliance check

// NewNotifier delivers email notifications through `svc`, with the attendance_notice template.
func NewNotifier(svc core.EmailService) notification.Sender {
	return &notifier{svc: svc}
}

func (n notifier) Send(ctx context.Context, msg notification.Message) error {
	return n.svc.SendMessage(ctx, &core.EmailMessage{
		To:           []mail.Address{{Name: msg.ToName, Address: msg.To}},
		Subject:      msg.Subject,
		TemplateName: noticeTemplate,
		TemplateData: noticeData{ToName: msg.ToName, Subject: msg.Subject, Body: msg.Body},
	})
}
