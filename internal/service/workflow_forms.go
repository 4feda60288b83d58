package service

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sardorbek21324/Kairos-team/internal/dto"
	"github.com/sardorbek21324/Kairos-team/internal/models"
	"github.com/sardorbek21324/Kairos-team/internal/report"
	appErrors "github.com/sardorbek21324/Kairos-team/pkg/errors"
)

var reportDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// fieldMessages names the rule each failed check violated. Keys are
// "<StructField>.<tag>"; the bare tag is the fallback.
var fieldMessages = map[string]string{
	"Date.report_date":          "The shooting date must be in YYYY-MM-DD format.",
	"ClipCount.positive_int":    "The number of videos must be a positive integer.",
	"EditedCount.positive_int":  "The number of edited videos must be a positive integer.",
	"FootageLink.http_link":     "The footage link must start with http:// or https://.",
	"EditLink.http_link":        "The edit link must start with http:// or https://.",
	"Examples.max":              "The examples field is too long.",
	"required":                  "Please fill in every required field.",
	"report_date":               "Dates must be in YYYY-MM-DD format.",
	"positive_int":              "Counts must be positive integers.",
	"http_link":                 "Links must start with http:// or https://.",
	"DecisionCommentForm.empty": "A comment is required for this decision.",
}

// newFormValidator registers the report form rules on validate.
func newFormValidator(validate *validator.Validate) *validator.Validate {
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterValidation("report_date", func(fl validator.FieldLevel) bool {
		return validReportDate(fl.Field().String())
	})
	validate.RegisterValidation("positive_int", func(fl validator.FieldLevel) bool {
		_, ok := parsePositiveInt(fl.Field().String())
		return ok
	})
	validate.RegisterValidation("http_link", func(fl validator.FieldLevel) bool {
		return validHTTPLink(fl.Field().String())
	})
	return validate
}

func validReportDate(value string) bool {
	if !reportDatePattern.MatchString(value) {
		return false
	}
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}

func parsePositiveInt(value string) (int, bool) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func validHTTPLink(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

// formError converts the first validator failure into a validation error
// carrying the matching user-facing message.
func formError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fieldMessages["required"])
	}
	fe := verrs[0]
	msg, ok := fieldMessages[fe.StructField()+"."+fe.Tag()]
	if !ok {
		msg, ok = fieldMessages[fe.Tag()]
	}
	if !ok {
		msg = fieldMessages["required"]
	}
	return appErrors.CloneWrap(appErrors.ErrValidation, err, msg)
}

func (s *WorkflowService) bindShootingForm(in models.Interaction) (dto.ShootingReportForm, error) {
	form := dto.ShootingReportForm{
		Date:        in.Value(InputShootingDate),
		Location:    in.Value(InputShootingLocation),
		ClipCount:   in.Value(InputShootingCount),
		FootageLink: in.Value(InputShootingDrive),
		Examples:    in.Value(InputShootingExamples),
	}
	if err := s.validator.Struct(form); err != nil {
		return form, formError(err)
	}
	n, _ := parsePositiveInt(form.ClipCount)
	form.ClipCount = strconv.Itoa(n)
	return form, nil
}

func (s *WorkflowService) bindEditingForm(in models.Interaction) (dto.EditingReportForm, error) {
	form := dto.EditingReportForm{
		Project:     in.Value(InputEditingProject),
		EditedCount: in.Value(InputEditingCount),
		EditLink:    in.Value(InputEditingDrive),
		Comment:     in.Value(InputEditingComment),
	}
	if err := s.validator.Struct(form); err != nil {
		return form, formError(err)
	}
	n, _ := parsePositiveInt(form.EditedCount)
	form.EditedCount = strconv.Itoa(n)
	return form, nil
}

func bindDecisionComment(in models.Interaction, status report.Status) (dto.DecisionCommentForm, error) {
	form := dto.DecisionCommentForm{Comment: in.Value(InputDecisionComment)}
	if commentRequired(status) && form.Comment == "" {
		return form, appErrors.Clone(appErrors.ErrValidation, fieldMessages["DecisionCommentForm.empty"])
	}
	return form, nil
}

func shootingFields(form dto.ShootingReportForm) []report.Field {
	examples := form.Examples
	if examples == "" {
		examples = "not provided"
	}
	return []report.Field{
		{Name: report.FieldShootingDate, Value: form.Date},
		{Name: report.FieldLocation, Value: form.Location},
		{Name: report.FieldClipCount, Value: form.ClipCount},
		{Name: report.FieldFootageLink, Value: form.FootageLink},
		{Name: report.FieldExamples, Value: examples},
	}
}

func editingFields(form dto.EditingReportForm) []report.Field {
	fields := []report.Field{
		{Name: report.FieldProject, Value: form.Project},
		{Name: report.FieldEditedCount, Value: form.EditedCount},
		{Name: report.FieldEditLink, Value: form.EditLink},
	}
	if form.Comment != "" {
		fields = append(fields, report.Field{Name: report.FieldComment, Value: form.Comment})
	}
	return fields
}

// ShootingForm is the shooting report dialog.
func ShootingForm() models.Form {
	return models.Form{
		ID:    FormShootingReport,
		Title: "Shooting report",
		Fields: []models.FormField{
			{ID: InputShootingDate, Label: "When was the shoot?", Placeholder: "YYYY-MM-DD", Required: true, MaxLength: 10},
			{ID: InputShootingLocation, Label: "Where was the shoot?", Required: true, MaxLength: 200},
			{ID: InputShootingCount, Label: "How many videos were shot?", Required: true, MaxLength: 6},
			{ID: InputShootingDrive, Label: "Footage link (Google Drive)", Placeholder: "https://", Required: true, MaxLength: 500},
			{ID: InputShootingExamples, Label: "Example video links", Long: true, MaxLength: 1000},
		},
	}
}

// EditingForm is the editing report dialog. The finish flow reuses the same
// inputs under its own form ID.
func EditingForm(id string) models.Form {
	title := "Editing report"
	if id == FormEditingFinish {
		title = "Finish editing"
	}
	return models.Form{
		ID:    id,
		Title: title,
		Fields: []models.FormField{
			{ID: InputEditingProject, Label: "Where is this video going?", Required: true, MaxLength: 200},
			{ID: InputEditingCount, Label: "How many videos were edited?", Required: true, MaxLength: 6},
			{ID: InputEditingDrive, Label: "Edited video link (Google Drive)", Placeholder: "https://", Required: true, MaxLength: 500},
			{ID: InputEditingComment, Label: "Comment", Long: true, MaxLength: 1000},
		},
	}
}

// DecisionCommentForm is the reviewer comment dialog for status.
func DecisionCommentForm(kind report.Kind, status report.Status) models.Form {
	titles := map[report.Status]string{
		report.StatusAccepted: "Comment on acceptance",
		report.StatusMixed:    "Comment on 50/50",
		report.StatusRejected: "Comment on rejection",
	}
	title, ok := titles[status]
	if !ok {
		title = "Comment"
	}
	return models.Form{
		ID:    DecisionCommentFormID(kind, status),
		Title: title,
		Fields: []models.FormField{
			{ID: InputDecisionComment, Label: "Comment", Long: true, Required: commentRequired(status), MaxLength: report.MaxCommentLength},
		},
	}
}
