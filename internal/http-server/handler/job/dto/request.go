package dto

// SubmitForm mirrors the multipart fields of a task submission. The file
// itself travels in the "content" part.
type SubmitForm struct {
	Type      string `json:"type" validate:"required,oneof=image"`
	Grayscale bool   `json:"grayscale"`
	Invert    bool   `json:"invert"`
	Blur      bool   `json:"blur"`
	Resize    bool   `json:"resize"`
	Watermark string `json:"watermark" validate:"max=100"`
}

type UploadInputRequest struct {
	TaskID      string `json:"taskId" validate:"required"`
	FileName    string `json:"fileName" validate:"required"`
	FileContent string `json:"fileContent" validate:"required"`
}
