package sitio

import "encoding/json"

const contentTypeJSON = "application/json; charset=utf-8"

// Reply is the success half of the envelope shared by every endpoint.
// Response types embed it so their own fields sit next to "success".
//
// Example:
//
//	type GetResponse struct {
//	    sitio.Reply
//	    Noticias []news.Record `json:"noticias"`
//	}
type Reply struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// OK returns a successful Reply carrying message.
func OK(message string) Reply {
	return Reply{Success: true, Message: message}
}

// errorResponse flattens *Error next to "success": false.
type errorResponse struct {
	Success bool `json:"success"`
	*Error
}

// encodeResponse writes a successful response to the ResponseWriter.
func encodeResponse(w jsonWriter, result any) error {
	return json.NewEncoder(w).Encode(result)
}

// encodeErrorResponse writes an error response to the ResponseWriter.
func encodeErrorResponse(w jsonWriter, err *Error) error {
	return json.NewEncoder(w).Encode(errorResponse{Success: false, Error: err})
}

// jsonWriter is satisfied by http.ResponseWriter and allows testing.
type jsonWriter interface {
	Write([]byte) (int, error)
}
