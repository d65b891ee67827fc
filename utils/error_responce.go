package utils

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
