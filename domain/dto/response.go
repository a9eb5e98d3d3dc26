package dto

// Response is the envelope every API route answers with.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// MultiPublishResponse aggregates the per-platform outcomes of a fan-out.
type MultiPublishResponse struct {
	Results    interface{} `json:"results"`
	Total      int         `json:"total"`
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
}
