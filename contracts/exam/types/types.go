// Package types defines the records, transactions and events of the exam
// contract, and the error taxonomy of its transitions.
package types

import (
	"encoding/binary"

	"github.com/dedis/e-exam/core/access"
	"github.com/dedis/e-exam/core/fhe"
	"golang.org/x/xerrors"
)

// Transition errors. Every failed transition wraps exactly one of them so
// that callers can match with xerrors.Is.
var (
	// ErrInvalidExamParameters indicates that the creation parameters failed
	// validation. Nothing has been written.
	ErrInvalidExamParameters = xerrors.New("invalid exam parameters")

	// ErrExamNotFound indicates that the exam does not exist or is inactive.
	ErrExamNotFound = xerrors.New("exam not found")

	// ErrExamNotInProgress indicates a submission outside [start, end].
	ErrExamNotInProgress = xerrors.New("exam not in progress")

	// ErrAlreadySubmitted indicates that the student already has a submission
	// for the exam.
	ErrAlreadySubmitted = xerrors.New("already submitted")

	// ErrScoreCountMismatch indicates that the number of submitted score
	// handles differs from the exam's question count.
	ErrScoreCountMismatch = xerrors.New("score count mismatch")

	// ErrSubmissionNotFound indicates that no submission exists for the
	// (exam, student) pair.
	ErrSubmissionNotFound = xerrors.New("submission not found")

	// ErrNotAuthorized indicates that the caller is neither the student nor
	// the exam's creator.
	ErrNotAuthorized = xerrors.New("not authorized")
)

// ExamID is the sequential identifier of an exam. Identifiers are assigned at
// creation and never reused.
type ExamID uint64

// Bytes returns the big-endian representation of the identifier, used as the
// storage key of the exam record.
func (id ExamID) Bytes() []byte {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, uint64(id))

	return buffer
}

// NewExamID reads an identifier back from its storage key.
func NewExamID(buffer []byte) ExamID {
	return ExamID(binary.BigEndian.Uint64(buffer))
}

// Status is the lifecycle position of an exam relative to a given instant.
type Status string

const (
	// StatusNotStarted is returned before the exam's start time.
	StatusNotStarted Status = "NOT_STARTED"

	// StatusInProgress is returned between start and end, inclusive.
	StatusInProgress Status = "IN_PROGRESS"

	// StatusEnded is returned after the exam's end time.
	StatusEnded Status = "ENDED"
)

// Exam is the public record of an exam plus its confidential threshold
// handle. The record is written once at creation and never modified.
type Exam struct {
	ExamID        ExamID         `json:"examId"`
	Title         string         `json:"title"`
	QuestionCount int            `json:"questionCount"`
	MaxScores     []int          `json:"maxScores"`
	Threshold     fhe.Handle     `json:"threshold"`
	StartTime     int64          `json:"startTime"`
	EndTime       int64          `json:"endTime"`
	Creator       access.Address `json:"creator"`
	Active        bool           `json:"active"`
}

// StatusAt returns the status of the exam at the given unix instant.
func (e Exam) StatusAt(now int64) Status {
	switch {
	case now < e.StartTime:
		return StatusNotStarted
	case now > e.EndTime:
		return StatusEnded
	default:
		return StatusInProgress
	}
}

// Submission is the record of one student's answers for one exam. Total and
// Passed start unset and are only ever overwritten by the aggregation
// transition.
type Submission struct {
	ExamID      ExamID         `json:"examId"`
	Student     access.Address `json:"student"`
	Scores      []fhe.Handle   `json:"scores"`
	Total       fhe.Handle     `json:"total"`
	Passed      fhe.Handle     `json:"passed"`
	SubmittedAt int64          `json:"submittedAt"`
}

// CreateExamTransaction is the input of the CREATE_EXAM command.
type CreateExamTransaction struct {
	Title         string     `json:"title"`
	QuestionCount int        `json:"questionCount"`
	MaxScores     []int      `json:"maxScores"`
	Threshold     fhe.Handle `json:"threshold"`
	StartTime     int64      `json:"startTime"`
	EndTime       int64      `json:"endTime"`
}

// SubmitAnswersTransaction is the input of the SUBMIT_ANSWERS command. The
// student is the identity of the transaction.
type SubmitAnswersTransaction struct {
	ExamID ExamID       `json:"examId"`
	Scores []fhe.Handle `json:"scores"`
}

// ComputeTotalTransaction is the input of the COMPUTE_TOTAL command. The
// caller is the identity of the transaction and must be the student or the
// exam's creator.
type ComputeTotalTransaction struct {
	ExamID  ExamID         `json:"examId"`
	Student access.Address `json:"student"`
}

// Event is implemented by the notifications emitted by the contract, one per
// successful transition.
type Event interface {
	isEvent()
}

// ExamCreated is emitted by a successful CREATE_EXAM transition.
type ExamCreated struct {
	ExamID        ExamID         `json:"examId"`
	Creator       access.Address `json:"creator"`
	Title         string         `json:"title"`
	QuestionCount int            `json:"questionCount"`
	StartTime     int64          `json:"startTime"`
	EndTime       int64          `json:"endTime"`
}

func (ExamCreated) isEvent() {}

// AnswersSubmitted is emitted by a successful SUBMIT_ANSWERS transition.
type AnswersSubmitted struct {
	ExamID      ExamID         `json:"examId"`
	Student     access.Address `json:"student"`
	SubmittedAt int64          `json:"submittedAt"`
}

func (AnswersSubmitted) isEvent() {}

// TotalComputed is emitted by a successful COMPUTE_TOTAL transition.
type TotalComputed struct {
	ExamID  ExamID         `json:"examId"`
	Student access.Address `json:"student"`
	Caller  access.Address `json:"caller"`
}

func (TotalComputed) isEvent() {}
