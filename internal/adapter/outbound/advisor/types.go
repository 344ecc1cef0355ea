package advisor

// proxyRequest is the envelope the AI proxy expects: the endpoint and
// model select the upstream route, everything else is forwarded as-is.
type proxyRequest struct {
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
	Prompt   string `json:"prompt,omitempty"`
	*GenerateRequest
	Config map[string]any `json:"config,omitempty"`
}

// Part is one piece of generation input or output.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData carries base64-encoded media.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Content is a role-tagged sequence of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Tool enables an upstream capability for a generation request.
type Tool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

// GenerateRequest is a generateContent request body.
type GenerateRequest struct {
	Contents          []Content      `json:"contents"`
	SystemInstruction *Content       `json:"systemInstruction,omitempty"`
	Tools             []Tool         `json:"tools,omitempty"`
	GenerationConfig  map[string]any `json:"generationConfig,omitempty"`
}

// TextRequest builds a single-turn request from a prompt.
func TextRequest(prompt string) *GenerateRequest {
	return &GenerateRequest{
		Contents: []Content{{Parts: []Part{{Text: prompt}}}},
	}
}

// WebSource is one grounding source attached to a response.
type WebSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type groundingChunk struct {
	Web *WebSource `json:"web"`
}

type groundingMetadata struct {
	GroundingChunks []groundingChunk `json:"groundingChunks"`
}

type candidate struct {
	Content           Content            `json:"content"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata"`
}

// GenerateResponse is a decoded generateContent response.
type GenerateResponse struct {
	Candidates []candidate `json:"candidates"`
}

// Text concatenates the text parts of the first candidate.
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	out := ""
	for _, p := range r.Candidates[0].Content.Parts {
		out += p.Text
	}
	return out
}

// Sources returns the web grounding sources of the first candidate.
func (r *GenerateResponse) Sources() []WebSource {
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var out []WebSource
	for _, chunk := range r.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk.Web != nil && chunk.Web.URI != "" && chunk.Web.Title != "" {
			out = append(out, *chunk.Web)
		}
	}
	return out
}

type generatedImage struct {
	Image struct {
		ImageBytes string `json:"imageBytes"`
	} `json:"image"`
}

type imagesResponse struct {
	GeneratedImages []generatedImage `json:"generatedImages"`
}

// apiError is the proxy's error body.
type apiError struct {
	Error string `json:"error"`
}

func (e *apiError) message() string {
	if e.Error != "" {
		return e.Error
	}
	return "generation request failed"
}
