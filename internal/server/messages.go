package server

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/autopilot/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func encodeMessage(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	return data, nil
}

func decodeClientMessage(data []byte) (service.ClientMessage, error) {
	var msg service.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return service.ClientMessage{}, fmt.Errorf("decoding message: %w", err)
	}
	if msg.Type == "" {
		return service.ClientMessage{}, fmt.Errorf("decoding message: missing type")
	}
	return msg, nil
}
