package messagingsvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/notification"
)

const whatsAppPrefix = "whatsapp:"

// messageCreator is the part of the twilio REST client used here.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender delivers SMS and WhatsApp notifications through the Twilio messaging API.
type TwilioSender struct {
	api          messageCreator
	fromNumber   string
	whatsAppFrom string
	logger       core.Logger
}

var _ notification.Sender = (*TwilioSender)(nil) // interface compliance check

func NewTwilioSender(conf *core.Config, logger core.Logger) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: conf.Twilio.AccountSID,
		Password: conf.Twilio.AuthToken,
	})
	return &TwilioSender{
		api:          client.Api,
		fromNumber:   conf.Twilio.FromNumber,
		whatsAppFrom: conf.Twilio.WhatsAppFrom,
		logger:       logger,
	}
}

func withWhatsAppPrefix(number string) string {
	if strings.HasPrefix(number, whatsAppPrefix) {
		return number
	}
	return whatsAppPrefix + number
}

// params builds the twilio request for `msg`; WhatsApp numbers are prefixed with "whatsapp:".
func (s *TwilioSender) params(msg notification.Message) (*twilioApi.CreateMessageParams, error) {
	to, from := msg.To, s.fromNumber
	switch msg.Method {
	case notification.MethodSMS:
	case notification.MethodWhatsApp:
		from = s.whatsAppFrom
		if from == "" {
			from = s.fromNumber
		}
		to, from = withWhatsAppPrefix(to), withWhatsAppPrefix(from)
	default:
		return nil, errors.Errorf("twilio cannot deliver %s messages", msg.Method)
	}
	if from == "" {
		return nil, errors.New("twilio sender number is not configured")
	}

	body := msg.Body
	if msg.Subject != "" {
		body = msg.Subject + "\n\n" + body
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)
	return params, nil
}

func (s *TwilioSender) Send(ctx context.Context, msg notification.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params, err := s.params(msg)
	if err != nil {
		return err
	}

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		s.logger.Error(fmt.Sprintf("sending %s message: %v", msg.Method, err), err)
		return errors.Wrapf(err, "sending %s message", msg.Method)
	}
	if resp != nil && resp.Sid != nil {
		s.logger.Debug(fmt.Sprintf("%s message %s queued for notification %s", msg.Method, *resp.Sid, msg.NotificationID))
	}
	return nil
}
