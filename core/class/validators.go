package class

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type (
	NewClass struct {
		Name                    string `json:"name" validate:"required"`
		Section                 string `json:"section" validate:"required"`
		Subject                 string `json:"subject" validate:"required"`
		CreateInGoogleClassroom bool   `json:"create_in_google_classroom"`
	}

	UpdateClass struct {
		Name    string `json:"name" validate:"required"`
		Section string `json:"section" validate:"required"`
		Subject string `json:"subject" validate:"required"`
	}

	NewStudent struct {
		Name  string `json:"name" validate:"required"`
		Email string `json:"email" validate:"required,email"`
	}
)

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Section = core.CleanString(nc.Section)
	nc.Subject = core.CleanString(nc.Subject)
	return validate.Struct(nc)
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Section = core.CleanString(uc.Section)
	uc.Subject = core.CleanString(uc.Subject)
	return validate.Struct(uc)
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return validate.Struct(ns)
}
