package benchdto

// APIError is the body of every non-2xx response.
type APIError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"error"`
	Status  int    `json:"-"`
}

func (e APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chessbench api error"
}

// Retryable reports whether the request may succeed if repeated later.
func (e APIError) Retryable() bool {
	return e.Status == 503 || e.Status == 429 || e.Status >= 500
}
