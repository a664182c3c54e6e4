package api

import "speakerid/internal/service"

// Message сообщение push-канала (websocket и gRPC Control stream)
type Message struct {
	Type string `json:"type"` // event, ping, pong, error

	// Для event
	Event *service.Event `json:"event,omitempty"`

	// Для error
	Error string `json:"error,omitempty"`
}

// errorResponse тело ошибки HTTP API
type errorResponse struct {
	Detail string `json:"detail"`
}

// healthResponse тело ответа /health
type healthResponse struct {
	Status string `json:"status"`
}
