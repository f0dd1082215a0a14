package api

import (
	"time"

	"github.com/phrazzld/namegen-api/internal/domain"
)

// CreateTaskRequest is the body of POST /api/tasks and POST /api/generate.
// Every field is optional; count 0 and an empty lang select the defaults.
type CreateTaskRequest struct {
	Style    string   `json:"style"    validate:"max=64"`
	YourName string   `json:"yourName" validate:"max=64"`
	Genders  []string `json:"genders"  validate:"max=3,dive,oneof=male female neutral"`
	Styles   []string `json:"styles"   validate:"max=10,dive,required,max=64"`
	Count    int      `json:"count"    validate:"min=0,max=10"`
	Lang     string   `json:"lang"     validate:"max=16"`
}

// ToInput converts the request into the normalized domain input.
func (r CreateTaskRequest) ToInput() domain.TaskInput {
	return domain.TaskInput{
		Style:    r.Style,
		YourName: r.YourName,
		Genders:  r.Genders,
		Styles:   r.Styles,
		Count:    r.Count,
		Lang:     r.Lang,
	}.Normalized()
}

// Normalized returns the request with the same trimming, lowercasing and
// defaults the domain input applies, so tag validation sees stored values.
func (r CreateTaskRequest) Normalized() CreateTaskRequest {
	in := r.ToInput()
	return CreateTaskRequest{
		Style:    in.Style,
		YourName: in.YourName,
		Genders:  in.Genders,
		Styles:   in.Styles,
		Count:    in.Count,
		Lang:     in.Lang,
	}
}

// GenerateResponse is the body of a successful POST /api/generate.
type GenerateResponse struct {
	Success bool               `json:"success"`
	Data    *domain.NameResult `json:"data"`
}

// StatusResponse is the body of GET /api/debug/status.
type StatusResponse struct {
	Success bool      `json:"success"`
	Status  string    `json:"status"`
	Time    time.Time `json:"time"`
}
