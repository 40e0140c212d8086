package model

import (
	"strings"

	"github.com/go-playground/validator/v10"

	appErr "github.com/xxxsen/askbook/internal/pkg/errors"
)

const MaxQuestionLen = 1024

// QARecord is one distinct normalized question and its generated answer.
type QARecord struct {
	ID       string `json:"id" validate:"required"`
	Question string `json:"question" validate:"required,max=1024,endswith=?"`
	Context  string `json:"context"`
	Answer   string `json:"answer" validate:"required"`
	AskCount int    `json:"ask_count" validate:"gte=1"`
	Ctime    int64  `json:"ctime"`
	Mtime    int64  `json:"mtime"`
}

var validate = validator.New()

var validationMessages = map[string]string{
	"required": "can't be blank",
	"max":      "is too long",
	"endswith": "must end with a question mark",
	"gte":      "must be greater than or equal to 1",
}

// Validate returns an *errors.ValidationError keyed by json field name.
func (r *QARecord) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := appErr.NewValidationError()
	for _, fe := range verrs {
		msg, ok := validationMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		out.Add(fieldName(fe.Field()), msg)
	}
	return out
}

func fieldName(structField string) string {
	switch structField {
	case "AskCount":
		return "ask_count"
	default:
		return strings.ToLower(structField)
	}
}
