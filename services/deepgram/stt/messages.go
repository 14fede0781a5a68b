package stt

// Wire messages of the Deepgram /v1/listen websocket API.

type ListenV1Results struct {
	Type         string  `json:"type"`
	ChannelIndex []int   `json:"channel_index"`
	Duration     float64 `json:"duration"`
	Start        float64 `json:"start"`
	IsFinal      bool    `json:"is_final"`
	SpeechFinal  bool    `json:"speech_final"`
	FromFinalize bool    `json:"from_finalize,omitempty"`
	Channel      struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type ListenV1Metadata struct {
	Type      string  `json:"type"`
	RequestID string  `json:"request_id"`
	Duration  float64 `json:"duration"`
	Channels  int     `json:"channels"`
}

type ListenV1Error struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Message     string `json:"message"`
	Variant     string `json:"variant"`
}

type ListenV1CloseStream struct {
	Type string `json:"type"`
}
