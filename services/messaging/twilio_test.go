package messagingsvc

import (
	"context"
	"io/ioutil"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/notification"
	logsvc "github.com/trezcool/attendance/services/logger"
)

type fakeCreator struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (f *fakeCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func newLogger() core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), &core.Config{TestMode: true})
	logger.Enable(false)
	return logger
}

func TestTwilioSender_params(t *testing.T) {
	tests := []struct {
		name         string
		fromNumber   string
		whatsAppFrom string
		msg          notification.Message
		wantTo       string
		wantFrom     string
		wantBody     string
		wantErr      bool
	}{
		{
			name: "sms", fromNumber: "+15005550006",
			msg:    notification.Message{Method: notification.MethodSMS, To: "+243812345678", Subject: "Hero was late", Body: "Dear Dad"},
			wantTo: "+243812345678", wantFrom: "+15005550006", wantBody: "Hero was late\n\nDear Dad",
		},
		{
			name: "whatsapp", fromNumber: "+15005550006", whatsAppFrom: "+14155238886",
			msg:    notification.Message{Method: notification.MethodWhatsApp, To: "+243812345678", Body: "Dear Dad"},
			wantTo: "whatsapp:+243812345678", wantFrom: "whatsapp:+14155238886", wantBody: "Dear Dad",
		},
		{
			name: "whatsapp from the sms number", fromNumber: "+15005550006",
			msg:    notification.Message{Method: notification.MethodWhatsApp, To: "whatsapp:+243812345678", Body: "Dear Dad"},
			wantTo: "whatsapp:+243812345678", wantFrom: "whatsapp:+15005550006", wantBody: "Dear Dad",
		},
		{name: "email", fromNumber: "+15005550006", msg: notification.Message{Method: notification.MethodEmail}, wantErr: true},
		{name: "no sender number", msg: notification.Message{Method: notification.MethodSMS, To: "+243812345678"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &TwilioSender{fromNumber: tt.fromNumber, whatsAppFrom: tt.whatsAppFrom}
			params, err := s.params(tt.msg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTo, *params.To)
			assert.Equal(t, tt.wantFrom, *params.From)
			assert.Equal(t, tt.wantBody, *params.Body)
		})
	}
}

func TestTwilioSender_Send(t *testing.T) {
	msg := notification.Message{NotificationID: "n1", Method: notification.MethodSMS, To: "+243812345678", Body: "Dear Dad"}

	t.Run("Queued", func(t *testing.T) {
		api := new(fakeCreator)
		s := &TwilioSender{api: api, fromNumber: "+15005550006", logger: newLogger()}
		require.NoError(t, s.Send(context.Background(), msg))
		require.Len(t, api.params, 1)
		assert.Equal(t, "+243812345678", *api.params[0].To)
	})

	t.Run("API error", func(t *testing.T) {
		api := &fakeCreator{err: errors.New("invalid number")}
		s := &TwilioSender{api: api, fromNumber: "+15005550006", logger: newLogger()}
		err := s.Send(context.Background(), msg)
		require.Error(t, err)
		assert.Equal(t, "sending sms message: invalid number", err.Error())
	})

	t.Run("Cancelled", func(t *testing.T) {
		api := new(fakeCreator)
		s := &TwilioSender{api: api, fromNumber: "+15005550006", logger: newLogger()}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Equal(t, context.Canceled, s.Send(ctx, msg))
		assert.Empty(t, api.params)
	})
}

func TestNewSenders(t *testing.T) {
	email := notification.SenderFunc(func(context.Context, notification.Message) error { return nil })

	senders := NewSenders(&core.Config{}, email, newLogger())
	assert.IsType(t, &ConsoleSender{}, senders[notification.MethodSMS])
	assert.IsType(t, &ConsoleSender{}, senders[notification.MethodWhatsApp])
	assert.NotNil(t, senders[notification.MethodEmail])

	conf := &core.Config{Twilio: core.TwilioConfig{AccountSID: "AC123", AuthToken: "secret", FromNumber: "+15005550006"}}
	senders = NewSenders(conf, email, newLogger())
	assert.IsType(t, &TwilioSender{}, senders[notification.MethodSMS])
	assert.Same(t, senders[notification.MethodSMS], senders[notification.MethodWhatsApp])
}

func TestConsoleSender(t *testing.T) {
	s := NewConsoleSender(newLogger())
	msgs := []notification.Message{
		{Method: notification.MethodSMS, To: "+243812345678"},
		{Method: notification.MethodWhatsApp, To: "+243812345679"},
	}
	for _, msg := range msgs {
		require.NoError(t, s.Send(context.Background(), msg))
	}
	assert.Equal(t, msgs, s.SentMessages())

	got := s.SentMessages()
	got[0].To = "changed"
	assert.Equal(t, msgs, s.SentMessages())
}
