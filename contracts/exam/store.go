package exam

import (
	"encoding/json"

	"github.com/dedis/e-exam/contracts/exam/types"
	"github.com/dedis/e-exam/core/access"
	"github.com/dedis/e-exam/core/store"
	"golang.org/x/xerrors"
)

// Storage layout of the contract, inside its prefixed key space:
//
//	counter                   -> last assigned exam id (8 bytes, big endian)
//	exam:<id>                 -> JSON exam record
//	roster:<id>               -> JSON list of student addresses
//	sub:<id>:<student>        -> JSON submission record
//	grant:<handle>            -> JSON grant list (written by the access service)

var counterKey = []byte("counter")

func examKey(id types.ExamID) []byte {
	return append([]byte("exam:"), id.Bytes()...)
}

func rosterKey(id types.ExamID) []byte {
	return append([]byte("roster:"), id.Bytes()...)
}

func submissionKey(id types.ExamID, student access.Address) []byte {
	key := append([]byte("sub:"), id.Bytes()...)
	key = append(key, ':')

	return append(key, []byte(student)...)
}

// GetExam returns the exam record, or ErrExamNotFound when the record is
// absent or inactive.
func GetExam(r store.Readable, id types.ExamID) (types.Exam, error) {
	buffer, err := r.Get(examKey(id))
	if err != nil {
		return types.Exam{}, xerrors.Errorf("failed to get exam: %v", err)
	}

	if len(buffer) == 0 {
		return types.Exam{}, xerrors.Errorf("%w: id %d", types.ErrExamNotFound, id)
	}

	exam := types.Exam{}
	err = json.Unmarshal(buffer, &exam)
	if err != nil {
		return types.Exam{}, xerrors.Errorf("failed to unmarshal exam: %v", err)
	}

	if !exam.Active {
		return types.Exam{}, xerrors.Errorf("%w: id %d is inactive", types.ErrExamNotFound, id)
	}

	return exam, nil
}

// GetSubmission returns the submission of the student for the exam, or
// ErrSubmissionNotFound.
func GetSubmission(r store.Readable, id types.ExamID, student access.Address) (types.Submission, error) {
	buffer, err := r.Get(submissionKey(id, student))
	if err != nil {
		return types.Submission{}, xerrors.Errorf("failed to get submission: %v", err)
	}

	if len(buffer) == 0 {
		return types.Submission{}, xerrors.Errorf("%w: student %v, exam %d",
			types.ErrSubmissionNotFound, student, id)
	}

	submission := types.Submission{}
	err = json.Unmarshal(buffer, &submission)
	if err != nil {
		return types.Submission{}, xerrors.Errorf("failed to unmarshal submission: %v", err)
	}

	return submission, nil
}

// GetRoster returns the list of students that submitted answers for the exam.
func GetRoster(r store.Readable, id types.ExamID) ([]access.Address, error) {
	buffer, err := r.Get(rosterKey(id))
	if err != nil {
		return nil, xerrors.Errorf("failed to get roster: %v", err)
	}

	if len(buffer) == 0 {
		return nil, nil
	}

	roster := []access.Address{}
	err = json.Unmarshal(buffer, &roster)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal roster: %v", err)
	}

	return roster, nil
}

func nextExamID(snap store.Snapshot) (types.ExamID, error) {
	buffer, err := snap.Get(counterKey)
	if err != nil {
		return 0, xerrors.Errorf("failed to get counter: %v", err)
	}

	last := types.ExamID(0)
	if len(buffer) == 8 {
		last = types.NewExamID(buffer)
	}

	next := last + 1

	err = snap.Set(counterKey, next.Bytes())
	if err != nil {
		return 0, xerrors.Errorf("failed to set counter: %v", err)
	}

	return next, nil
}

func appendRoster(snap store.Snapshot, id types.ExamID, student access.Address) error {
	roster, err := GetRoster(snap, id)
	if err != nil {
		return err
	}

	roster = append(roster, student)

	return setRecord(snap, rosterKey(id), roster)
}

func setRecord(snap store.Snapshot, key []byte, record interface{}) error {
	buffer, err := json.Marshal(record)
	if err != nil {
		return xerrors.Errorf("failed to marshal record: %v", err)
	}

	err = snap.Set(key, buffer)
	if err != nil {
		return xerrors.Errorf("failed to set value: %v", err)
	}

	return nil
}
