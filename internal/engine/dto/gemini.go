package dto

// GeminiAPIRequest is the generateContent request payload.
type GeminiAPIRequest struct {
	Contents []Content `json:"contents"`
}

// Content is one conversation turn.
type Content struct {
	Parts []Part `json:"parts"`
}

// Part is one text fragment of a turn.
type Part struct {
	Text string `json:"text"`
}

// GeminiAPIResponse is the generateContent response payload.
type GeminiAPIResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}
