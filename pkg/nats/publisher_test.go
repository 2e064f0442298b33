package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJetStream struct {
	jetstream.JetStream
	subject string
	data    []byte
	err     error
}

func (f *fakeJetStream) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.subject = subject
	f.data = data
	if f.err != nil {
		return nil, f.err
	}
	return &jetstream.PubAck{Stream: "PRODUCTS", Sequence: 1}, nil
}

type testEvent struct {
	payloadErr error
}

func (testEvent) Subject() string { return "products.test" }

func (e testEvent) Payload() ([]byte, error) {
	if e.payloadErr != nil {
		return nil, e.payloadErr
	}
	return []byte(`{"ok":true}`), nil
}

func TestNatsPublisher_Publish(t *testing.T) {
	testCases := []struct {
		name        string
		event       testEvent
		publishErr  error
		expectedErr bool
	}{
		{name: "published", event: testEvent{}},
		{name: "payload error", event: testEvent{payloadErr: errors.New("bad payload")}, expectedErr: true},
		{name: "broker error", event: testEvent{}, publishErr: errors.New("no responders"), expectedErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			js := &fakeJetStream{err: tc.publishErr}
			publisher := NewNatsPublisher(js)

			// when
			err := publisher.Publish(context.Background(), tc.event)

			// then
			if tc.expectedErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "products.test", js.subject)
			assert.JSONEq(t, `{"ok":true}`, string(js.data))
		})
	}
}
