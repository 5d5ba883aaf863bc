package bus

// InboundMessage is a chat message entering the relay from a channel
// (websocket hub, Discord bridge, CLI client).
type InboundMessage struct {
	Channel  string            // originating channel name
	OriginID string            // connection identity within the channel, used to skip echo
	Sender   string            // display name shown in the transcript
	Content  string            // message text
	Metadata map[string]string // channel-specific extras
}

// OutboundMessage is a chat message leaving the relay toward connected
// participants. An empty Channel means broadcast to every channel.
type OutboundMessage struct {
	Channel  string
	OriginID string // connection to exclude from the broadcast
	Sender   string
	Content  string
}
