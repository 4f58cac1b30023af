package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
)

type fakeAPI struct {
	sent   []*sgmail.SGMailV3
	status int
	err    error
}

func (f *fakeAPI) SendWithContext(_ context.Context, email *sgmail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status, Body: "body"}, nil
}

var testConfig = config.SendgridConfig{APIKey: "key", DefaultFrom: "shop@example.com", FromName: "Fix-It"}

func TestSendBuildsSingleEmail(t *testing.T) {
	api := &fakeAPI{status: 202}
	sender := newSendGridSender(api, testConfig, nil)

	err := sender.Send(context.Background(), Message{
		To:      "dana@example.com",
		ToName:  "Dana",
		Subject: "Your device is ready",
		Text:    "Balance due: 100.00 <cash>",
	})
	require.NoError(t, err)
	require.Len(t, api.sent, 1)

	email := api.sent[0]
	assert.Equal(t, "shop@example.com", email.From.Address)
	assert.Equal(t, "Fix-It", email.From.Name)
	assert.Equal(t, "Your device is ready", email.Subject)
	require.Len(t, email.Personalizations, 1)
	assert.Equal(t, "dana@example.com", email.Personalizations[0].To[0].Address)
	require.Len(t, email.Content, 2)
	assert.Equal(t, "text/html", email.Content[1].Type)
	assert.Contains(t, email.Content[1].Value, "&lt;cash&gt;")
}

func TestSendSurfacesStatusErrors(t *testing.T) {
	sender := newSendGridSender(&fakeAPI{status: 429}, testConfig, nil)
	err := sender.Send(context.Background(), Message{To: "a@b.co", Subject: "s", Text: "t"})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 429, statusErr.StatusCode)
	assert.True(t, statusErr.Retryable())

	sender = newSendGridSender(&fakeAPI{status: 400}, testConfig, nil)
	err = sender.Send(context.Background(), Message{To: "a@b.co", Subject: "s", Text: "t"})
	require.True(t, errors.As(err, &statusErr))
	assert.False(t, statusErr.Retryable())
}

func TestSendValidatesMessage(t *testing.T) {
	api := &fakeAPI{status: 202}
	sender := newSendGridSender(api, testConfig, nil)
	assert.Error(t, sender.Send(context.Background(), Message{Subject: "s"}))
	assert.Error(t, sender.Send(context.Background(), Message{To: "a@b.co"}))
	assert.Empty(t, api.sent)
}

func TestNewFallsBackToNoop(t *testing.T) {
	sender := New(config.SendgridConfig{}, nil)
	_, ok := sender.(NoopSender)
	require.True(t, ok)
	assert.ErrorIs(t, sender.Send(context.Background(), Message{}), ErrDisabled)
}
