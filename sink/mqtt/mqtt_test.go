package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/luhtfiimanal/go-thermo-serial/display"
	"github.com/luhtfiimanal/go-thermo-serial/reading"
)

const sample = `{"T":18.0,"RH":42.0,"Td":5.0,"ES":10.0,"E":4.0,"AH":6.0,"W":3.0,"H":20.0}`

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	retained bool
	payload  string
}

type fakeClient struct {
	sent         []message
	err          error
	disconnected bool
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.sent = append(f.sent, message{topic, retained, string(payload.([]byte))})
	return doneToken{f.err}
}

func (f *fakeClient) Disconnect(uint) { f.disconnected = true }

func knownState(t *testing.T) display.State {
	t.Helper()
	r, err := reading.Parse(sample)
	require.NoError(t, err)
	return display.FromReading(r, sample)
}

func TestMQTTOutput_AvailabilityTransitions(t *testing.T) {
	fc := &fakeClient{}
	out := newOutput(fc, Config{}.withDefaults())
	ctx := context.Background()

	require.NoError(t, out.Publish(ctx, display.Unknown()))
	require.NoError(t, out.Publish(ctx, knownState(t)))
	require.NoError(t, out.Publish(ctx, knownState(t)))
	require.NoError(t, out.Publish(ctx, display.Unknown()))

	topics := make([]string, len(fc.sent))
	for i, m := range fc.sent {
		topics[i] = m.topic + "=" + map[bool]string{true: "r", false: "-"}[m.retained]
	}
	require.Equal(t, []string{
		DefaultAvailabilityTopic + "=r",
		DefaultAvailabilityTopic + "=r",
		DefaultStateTopic + "=-",
		DefaultStateTopic + "=-",
		DefaultAvailabilityTopic + "=r",
	}, topics)
	require.Equal(t, payloadOffline, fc.sent[0].payload)
	require.Equal(t, payloadOnline, fc.sent[1].payload)
	require.Equal(t, payloadOffline, fc.sent[4].payload)
}

func TestMQTTOutput_StatePayload(t *testing.T) {
	fc := &fakeClient{}
	out := newOutput(fc, Config{StateTopic: "lab/thermo"}.withDefaults())
	require.NoError(t, out.Publish(context.Background(), knownState(t)))

	require.Len(t, fc.sent, 2)
	require.Equal(t, "lab/thermo", fc.sent[1].topic)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(fc.sent[1].payload), &got))
	require.Equal(t, "18.00 °C", got["temperature"])
	require.Equal(t, 18.0, got["temperature_c"])
	require.Equal(t, sample, got["raw"])
	require.Equal(t, 42.0, got["values"].(map[string]any)["RH"])
	require.Equal(t, display.Background(18).Base.Hex(), got["background"].(map[string]any)["base"])
}

func TestMQTTOutput_PublishError(t *testing.T) {
	fc := &fakeClient{err: errors.New("not connected")}
	out := newOutput(fc, Config{}.withDefaults())
	err := out.Publish(context.Background(), knownState(t))
	require.ErrorContains(t, err, "not connected")
}

func TestMQTTOutput_Close(t *testing.T) {
	fc := &fakeClient{}
	out := newOutput(fc, Config{}.withDefaults())
	require.NoError(t, out.Close())
	require.True(t, fc.disconnected)
	require.Equal(t, payloadOffline, fc.sent[0].payload)
}

func TestConfigDefaults(t *testing.T) {
	c := Config{ClientID: "lab-1"}.withDefaults()
	require.Equal(t, DefaultServer, c.Server)
	require.Equal(t, "lab-1", c.ClientID)
	require.Equal(t, DefaultStateTopic, c.StateTopic)
	require.Equal(t, DefaultAvailabilityTopic, c.AvailabilityTopic)
}
