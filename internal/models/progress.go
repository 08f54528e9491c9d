package models

type ProgressUpdate struct {
	JobID    string  `json:"jobId"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
	Status   string  `json:"status"` // e.g. "running", "completed", "failed", "cancelled"
	// Optional fields for more detailed updates
	Done bool `json:"done"`
}
