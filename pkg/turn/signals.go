package turn

import "github.com/harunnryd/domov/pkg/messages"

// MicSignals turns state changes into the client's microphone messages:
// mic_on when listening starts, mic_off and thinking when the engine takes
// over, mic_off alone when listening ends without an utterance.
func MicSignals(send func(messages.Outbound)) StateListener {
	return ListenerFunc(func(ev StateChange) {
		switch {
		case ev.ToState == StateListening:
			send(messages.MicOn())
		case ev.FromState == StateListening && ev.ToState == StateThinking:
			send(messages.MicOff())
			send(messages.Thinking())
		case ev.FromState == StateListening:
			send(messages.MicOff())
		}
	})
}
