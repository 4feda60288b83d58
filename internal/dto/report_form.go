package dto

// ShootingReportForm holds the operator's shooting report input.
type ShootingReportForm struct {
	Date        string `form:"date" validate:"required,report_date"`
	Location    string `form:"location" validate:"required"`
	ClipCount   string `form:"count" validate:"required,positive_int"`
	FootageLink string `form:"drive" validate:"required,http_link"`
	Examples    string `form:"examples" validate:"omitempty,max=1000"`
}

// EditingReportForm holds the editor's editing report input.
type EditingReportForm struct {
	Project     string `form:"project" validate:"required"`
	EditedCount string `form:"count" validate:"required,positive_int"`
	EditLink    string `form:"drive" validate:"required,http_link"`
	Comment     string `form:"comment"`
}

// DecisionCommentForm holds the reviewer's comment.
type DecisionCommentForm struct {
	Comment string `form:"comment"`
}
