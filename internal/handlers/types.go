package handlers

type PredictionRequest struct {
	SensorData []*float32 `json:"sensor_data"`
}

type PredictionResponse struct {
	Prediction string  `json:"prediction"`
	Confidence float32 `json:"confidence"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type SchemaResponse struct {
	SequenceLength   int      `json:"sequence_length"`
	FeaturesPerFrame int      `json:"features_per_frame"`
	ExpectedLength   int      `json:"expected_length"`
	Labels           []string `json:"labels"`
}

type EnhanceRequest struct {
	Text string `json:"text"`
	Tone string `json:"tone"`
}

type EnhanceResponse struct {
	Original string `json:"original,omitempty"`
	Enhanced string `json:"enhanced,omitempty"`
	Tone     string `json:"tone,omitempty"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

type GrammarRequest struct {
	Text string `json:"text"`
}

type GrammarResponse struct {
	OriginalText  string `json:"original_text"`
	CorrectedText string `json:"corrected_text"`
}

const kindInvalidRequest = "invalid_request"
