package model

import "time"

// InputType identifies what kind of content was submitted
type InputType string

const (
	InputURL   InputType = "url"
	InputText  InputType = "text"
	InputImage InputType = "image"
	InputVideo InputType = "video"
)

// Valid reports whether the input type is one the pipeline accepts
func (t InputType) Valid() bool {
	switch t {
	case InputURL, InputText, InputImage, InputVideo:
		return true
	}
	return false
}

// CheckStatus is the lifecycle status of a verification job
type CheckStatus string

const (
	StatusPending    CheckStatus = "pending"
	StatusProcessing CheckStatus = "processing"
	StatusCompleted  CheckStatus = "completed"
	StatusFailed     CheckStatus = "failed"
)

// Terminal reports whether the status is final
func (s CheckStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Stage identifies a pipeline stage
type Stage string

const (
	StagePending   Stage = "pending"
	StageIngest    Stage = "ingest"
	StageExtract   Stage = "extract"
	StageRetrieve  Stage = "retrieve"
	StageVerify    Stage = "verify"
	StageJudge     Stage = "judge"
	StageAnswer    Stage = "answer"
	StageCompleted Stage = "completed"
	StageFailed    Stage = "failed"
)

// Terminal reports whether the stage is final
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Check represents one verification job
type Check struct {
	ID          string      `json:"id"`
	InputType   InputType   `json:"input_type"`
	Content     string      `json:"content"`              // Normalized input text (or URL before ingest)
	Status      CheckStatus `json:"status"`
	Stage       Stage       `json:"stage"`
	Progress    int         `json:"progress"`             // 0-100, monotonically non-decreasing
	CreditsUsed int         `json:"credits_used"`
	Error       string      `json:"error,omitempty"`      // User-facing message when Status == failed
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	UserQuery string       `json:"user_query,omitempty"`
	Claims    []Claim      `json:"claims,omitempty"`
	Answer    *QueryAnswer `json:"answer,omitempty"`
}

// Clone returns a deep copy so stored snapshots never share slices with
// the worker's live record
func (c *Check) Clone() *Check {
	cp := *c
	if c.Claims != nil {
		cp.Claims = make([]Claim, len(c.Claims))
		for i, cl := range c.Claims {
			cp.Claims[i] = cl.Clone()
		}
	}
	if c.Answer != nil {
		a := c.Answer.Clone()
		cp.Answer = &a
	}
	return &cp
}

// ClampConfidence bounds a confidence value to the 0-100 integer scale
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ClampScore bounds a unit-interval score to [0,1]
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
