package course

import (
	"context"
	"time"

	"github.com/muddyapp/muddy/core"
)

type Course struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required"`
}

func (nc *NewCourse) Validate(ctx context.Context, svc *Service) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = core.CleanString(nc.Code)

	if err := core.Validate.Struct(nc); err != nil {
		return err
	}
	return svc.checkCodeUniqueness(ctx, nc.Code)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (uc *UpdateCourse) Validate(ctx context.Context, orig Course, svc *Service) error {
	name := core.CleanString(uc.Name)
	if name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}

	code := core.CleanString(uc.Code)
	if code != "" {
		uc.Code = code
	} else {
		uc.Code = orig.Code
	}

	if err := core.Validate.Struct(uc); err != nil {
		return err
	}
	return svc.checkCodeUniqueness(ctx, uc.Code, orig)
}
