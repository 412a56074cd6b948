package protocol

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewPerceptionMessage wraps a perception report.
func NewPerceptionMessage(report PerceptionReport) (*Message, error) {
	return NewMessage(TypePerception, report)
}

// NewVoiceMessage wraps freshly heard transcripts.
func NewVoiceMessage(messages []VoiceMessage) (*Message, error) {
	return NewMessage(TypeVoice, VoiceReport{Messages: messages})
}

// NewEventMessage wraps a state change event.
func NewEventMessage(event, detail string) (*Message, error) {
	return NewMessage(TypeEvent, EventReport{Event: event, Detail: detail})
}

// NewActionMessage wraps a combo action request.
func NewActionMessage(req ActionRequest) (*Message, error) {
	return NewMessage(TypeAction, req)
}

// NewExpressMessage wraps an emotion request.
func NewExpressMessage(emotion, text string) (*Message, error) {
	return NewMessage(TypeExpress, ExpressRequest{Emotion: emotion, Text: text})
}

// NewPingMessage creates a ping message.
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id})
}

// NewPongMessage creates a pong response.
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetPerceptionReport extracts a perception report.
func (m *Message) GetPerceptionReport() (*PerceptionReport, error) {
	var data PerceptionReport
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetVoiceReport extracts a voice report.
func (m *Message) GetVoiceReport() (*VoiceReport, error) {
	var data VoiceReport
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEventReport extracts an event report.
func (m *Message) GetEventReport() (*EventReport, error) {
	var data EventReport
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetActionRequest extracts an action request.
func (m *Message) GetActionRequest() (*ActionRequest, error) {
	var data ActionRequest
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetExpressRequest extracts an emotion request.
func (m *Message) GetExpressRequest() (*ExpressRequest, error) {
	var data ExpressRequest
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data.
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data.
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
