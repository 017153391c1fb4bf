package dto

// MsgTaskNotFound is the message of the 404 answer for an unknown task id.
const MsgTaskNotFound = "Task not found"

type SubmitResponse struct {
	ID string `json:"id"`
}

type StatusResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ResultKey string `json:"resultKey,omitempty"`
	Error     string `json:"error,omitempty"`
}

type UploadInputResponse struct {
	Key string `json:"key"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}
