// Package report models the workflow report record and its rendered form.
//
// A record is never stored anywhere but in the chat message that displays it,
// so every piece of state must survive Render followed by Parse.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind identifies which workflow a record belongs to.
type Kind string

const (
	KindShooting Kind = "shooting"
	KindEditing  Kind = "editing"
)

// Label is the human readable name of the kind.
func (k Kind) Label() string {
	switch k {
	case KindShooting:
		return "shooting"
	case KindEditing:
		return "editing"
	default:
		return string(k)
	}
}

// Stage is one step of the pipeline a record currently sits in.
type Stage string

const (
	StageSubmit  Stage = "submit"
	StageReview  Stage = "review"
	StageFinish  Stage = "finish"
	StagePublish Stage = "publish"
)

// Status is the review outcome of a record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusMixed     Status = "mixed"
	StatusRejected  Status = "rejected"
	StatusPublished Status = "published"
)

// Field labels shared by the forms, the forwarder and the notifier.
const (
	FieldShootingDate     = "Shooting date"
	FieldLocation         = "Location"
	FieldClipCount        = "Clip count"
	FieldFootageLink      = "Footage link"
	FieldExamples         = "Examples"
	FieldProject          = "Project"
	FieldEditedCount      = "Edited videos"
	FieldEditLink         = "Edit link"
	FieldComment          = "Comment"
	FieldProcessingStatus = "Processing status"

	// DecisionFieldName holds the combined reviewer decision.
	DecisionFieldName = "Decision"

	ProcessingInProgress = "in progress"
	ProcessingDone       = "done"

	// NoComment replaces an empty reviewer comment.
	NoComment = "no comment"
)

var (
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the record's current state.
	ErrInvalidTransition = errors.New("report: invalid status transition")
	// ErrUnrecognized is returned by Parse for documents that were not
	// produced by Render.
	ErrUnrecognized = errors.New("report: document is not a workflow report")
)

// Field is one labelled value. Records keep fields in insertion order.
type Field struct {
	Name  string
	Value string
}

// Identity is a chat user as far as the workflow cares.
type Identity struct {
	ID          uint64
	DisplayName string
}

// Mention renders the identity as a user mention.
func (i Identity) Mention() string {
	return fmt.Sprintf("<@%d>", i.ID)
}

// Decision is the recorded reviewer outcome.
type Decision struct {
	Status    Status
	Reviewer  Identity
	Comment   string
	DecidedAt time.Time
}

// Record is a single shooting or editing report at one stage.
type Record struct {
	Kind      Kind
	Stage     Stage
	Status    Status
	Fields    []Field
	Author    Identity
	Decision  *Decision
	CreatedAt time.Time
}

// New builds a pending record.
func New(kind Kind, stage Stage, author Identity, createdAt time.Time, fields ...Field) Record {
	return Record{
		Kind:      kind,
		Stage:     stage,
		Status:    StatusPending,
		Fields:    append([]Field(nil), fields...),
		Author:    author,
		CreatedAt: createdAt,
	}
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := r
	out.Fields = append([]Field(nil), r.Fields...)
	if r.Decision != nil {
		d := *r.Decision
		out.Decision = &d
	}
	return out
}

// Field returns the value of the named field.
func (r Record) Field(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// SetField replaces the named field in place or appends it.
func (r *Record) SetField(name, value string) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
}

// CanTransition reports whether a record of kind at stage may move from one
// status to another. Only pending records move; Published is reached from
// the publish stage alone.
func CanTransition(kind Kind, stage Stage, from, to Status) bool {
	if from != StatusPending {
		return false
	}
	switch stage {
	case StageReview:
		switch to {
		case StatusAccepted, StatusRejected:
			return true
		case StatusMixed:
			return kind == KindShooting
		}
	case StagePublish:
		return kind == KindEditing && to == StatusPublished
	}
	return false
}

// WithDecision records a reviewer decision and returns the new record. Any
// earlier decision field is dropped so exactly one remains.
func WithDecision(r Record, status Status, reviewer Identity, comment string, at time.Time) (Record, error) {
	if !CanTransition(r.Kind, r.Stage, r.Status, status) {
		return Record{}, fmt.Errorf("%w: %s %s from %s to %s", ErrInvalidTransition, r.Kind, r.Stage, r.Status, status)
	}
	out := r.Clone()
	kept := out.Fields[:0]
	for _, f := range out.Fields {
		if f.Name != DecisionFieldName {
			kept = append(kept, f)
		}
	}
	out.Fields = kept

	comment = strings.TrimSpace(comment)
	if comment == "" {
		comment = NoComment
	}
	out.Status = status
	out.Decision = &Decision{
		Status:    status,
		Reviewer:  reviewer,
		Comment:   comment,
		DecidedAt: at.UTC(),
	}
	return out, nil
}

// CloneForNextStage copies r into a fresh pending record for the next stage.
// Field order is preserved; updates replace fields of the same name in place
// and append the rest. The previous decision is not carried over.
func CloneForNextStage(r Record, kind Kind, stage Stage, at time.Time, updates ...Field) Record {
	out := Record{
		Kind:      kind,
		Stage:     stage,
		Status:    StatusPending,
		Author:    r.Author,
		CreatedAt: at,
	}
	out.Fields = make([]Field, 0, len(r.Fields)+len(updates))
	for _, f := range r.Fields {
		if f.Name == DecisionFieldName {
			continue
		}
		out.Fields = append(out.Fields, f)
	}
	for _, u := range updates {
		out.SetField(u.Name, u.Value)
	}
	return out
}
