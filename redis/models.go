package redis

import (
	"encoding/json"

	publicchat "github.com/isolophiliabusiness/Public-Chat"
)

// Cached messages are stored as JSON blobs rather than flat hashes: the
// reactions map is nested and round-trips losslessly this way.
func encodeMessage(msg publicchat.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func decodeMessage(data string) (publicchat.Message, error) {
	var msg publicchat.Message
	err := json.Unmarshal([]byte(data), &msg)
	return msg, err
}
