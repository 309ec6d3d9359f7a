package study

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"neurostudy/internal/config"
	models "neurostudy/internal/domain/models/study"
	studySvc "neurostudy/internal/domain/services/study"
)

// notBlank rejects strings that are empty after trimming.
var notBlank = validation.By(func(value interface{}) error {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return errors.New("cannot be blank")
		}
	case *string:
		if v != nil && strings.TrimSpace(*v) == "" {
			return errors.New("cannot be blank")
		}
	}
	return nil
})

// validateCreateFolder validates a folder creation request
func validateCreateFolder(req *studySvc.CreateFolderRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			notBlank,
			validation.Length(1, config.MaxFolderNameLength),
		),
	)
}

// validateUpdateFolder validates a folder update request
func validateUpdateFolder(req *studySvc.UpdateFolderRequest) error {
	if req.Name == nil && req.Color == nil && !req.Parent.Present {
		return fmt.Errorf("at least one field must be provided")
	}

	var rules []*validation.FieldRules
	if req.Name != nil {
		rules = append(rules,
			validation.Field(&req.Name,
				validation.Required,
				notBlank,
				validation.Length(1, config.MaxFolderNameLength),
			),
		)
	}

	return validation.ValidateStruct(req, rules...)
}

// validateCreateStudy validates a study creation request
func validateCreateStudy(req *studySvc.CreateStudyRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.FolderID, validation.Required),
		validation.Field(&req.Title,
			validation.Required,
			notBlank,
			validation.Length(1, config.MaxStudyTitleLength),
		),
		validation.Field(&req.Mode, validation.By(validMode)),
	)
}

// validateUpdateStudy validates a study update request
func validateUpdateStudy(req *studySvc.UpdateStudyRequest) error {
	if req.Title == nil && req.FolderID == nil && req.Mode == nil {
		return fmt.Errorf("at least one field must be provided")
	}

	return validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.NilOrNotEmpty,
			notBlank,
			validation.Length(1, config.MaxStudyTitleLength),
		),
		validation.Field(&req.FolderID, validation.NilOrNotEmpty),
		validation.Field(&req.Mode, validation.By(validMode)),
	)
}

// validateAddSource validates new source material
func validateAddSource(req *studySvc.AddSourceRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Type, validation.Required, validation.By(validSourceType)),
		validation.Field(&req.Name, validation.Length(0, config.MaxSourceNameLength)),
		validation.Field(&req.Content,
			validation.Required,
			notBlank,
			validation.Length(1, config.MaxSourceContentBytes),
		),
	)
	if err != nil {
		return err
	}

	if req.Type.IsBinary() {
		if _, err := base64.StdEncoding.DecodeString(req.Content); err != nil {
			return validation.Errors{"content": errors.New("must be base64 for binary sources")}
		}
	}
	return nil
}

func validMode(value interface{}) error {
	var m models.Mode
	switch v := value.(type) {
	case models.Mode:
		m = v
	case *models.Mode:
		if v == nil {
			return nil
		}
		m = *v
	}
	if m == "" || m.Valid() {
		return nil
	}
	return fmt.Errorf("must be one of NORMAL, TURBO, SURVIVAL")
}

func validSourceType(value interface{}) error {
	t, _ := value.(models.SourceType)
	if !t.Valid() {
		return fmt.Errorf("must be one of TEXT, PDF, DOI, VIDEO, URL, IMAGE")
	}
	return nil
}
