// Package exam implements the native contract holding the confidential exam
// ledger. Scores and thresholds are stored as opaque ciphertext handles; the
// contract aggregates them homomorphically and manages the grant set of every
// handle it stores.
package exam

import (
	"bytes"
	"encoding/json"
	"time"

	eexam "github.com/dedis/e-exam"
	"github.com/dedis/e-exam/contracts/exam/types"
	"github.com/dedis/e-exam/core/access"
	"github.com/dedis/e-exam/core/execution"
	"github.com/dedis/e-exam/core/fhe"
	"github.com/dedis/e-exam/core/store"
	"golang.org/x/xerrors"
)

// commands defines the commands of the exam contract. This interface helps in
// testing the contract.
type commands interface {
	createExam(snap store.Snapshot, step execution.Step) error
	submitAnswers(snap store.Snapshot, step execution.Step) error
	computeTotal(snap store.Snapshot, step execution.Step) error
}

const (
	// ContractName is the name of the contract.
	ContractName = "github.com/dedis/e-exam.Exam"

	// ContractUID is the unique 4-byte identifier of the contract, used as
	// the prefix of its key space.
	ContractUID = "EXAM"

	// CmdArg is the argument's name to indicate the kind of command we want
	// to run on the contract. Should be one of the Command type.
	CmdArg = "exam:command"

	// CreateExamArg is the argument's name in the transaction that contains
	// the JSON-encoded CreateExamTransaction.
	CreateExamArg = "exam:createExamArgs"

	// SubmitAnswersArg is the argument's name in the transaction that
	// contains the JSON-encoded SubmitAnswersTransaction.
	SubmitAnswersArg = "exam:submitAnswersArgs"

	// ComputeTotalArg is the argument's name in the transaction that contains
	// the JSON-encoded ComputeTotalTransaction.
	ComputeTotalArg = "exam:computeTotalArgs"
)

const (
	// maxQuestions bounds the number of questions of an exam.
	maxQuestions = 100

	// maxScore bounds the maximum score of a single question.
	maxScore = 100
)

// Command defines a type of command for the exam contract.
type Command string

const (
	// CmdCreateExam defines the command to create an exam.
	CmdCreateExam Command = "CREATE_EXAM"

	// CmdSubmitAnswers defines the command to submit encrypted scores.
	CmdSubmitAnswers Command = "SUBMIT_ANSWERS"

	// CmdComputeTotal defines the command to aggregate a submission and judge
	// it against the exam's threshold.
	CmdComputeTotal Command = "COMPUTE_TOTAL"
)

// Clock returns the current time of the ledger. It is a parameter of the
// contract so that transitions stay testable at boundary instants.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Contract is the smart contract holding the exam ledger.
//
// - implements native.Contract
type Contract struct {
	// access manages the grant set of every handle stored by the contract.
	access access.Service

	// scheme is the homomorphic primitive. The contract only holds the
	// ciphertext surface, never a revealer.
	scheme fhe.Scheme

	// ledger is the principal of the ledger itself. It is granted on every
	// handle so that later homomorphic operations stay possible.
	ledger access.Address

	// clock provides the current time of the transitions.
	clock Clock

	// events carries the notifications of successful transitions to the
	// watchers of the ledger.
	events *eventFeed

	// cmd provides the commands that can be executed by this smart contract.
	cmd commands
}

// NewContract creates a new exam contract. The ledger address is the
// principal under which the contract itself is granted decryption rights.
func NewContract(ledger access.Address, srvc access.Service, scheme fhe.Scheme) *Contract {
	contract := &Contract{
		access: srvc,
		scheme: scheme,
		ledger: ledger,
		clock:  realClock{},
		events: newEventFeed(),
	}

	contract.cmd = examCommand{Contract: contract}

	return contract
}

// Execute implements native.Contract. It runs the appropriate command.
func (c *Contract) Execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	switch Command(cmd) {
	case CmdCreateExam:
		err := c.cmd.createExam(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to CREATE_EXAM: %w", err)
		}
	case CmdSubmitAnswers:
		err := c.cmd.submitAnswers(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to SUBMIT_ANSWERS: %w", err)
		}
	case CmdComputeTotal:
		err := c.cmd.computeTotal(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to COMPUTE_TOTAL: %w", err)
		}
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	return nil
}

// examCommand implements the commands of the exam contract.
//
// - implements commands
type examCommand struct {
	*Contract
}

// createExam implements commands. It performs the CREATE_EXAM command. The
// validation is atomic: any violation leaves the snapshot untouched.
func (e examCommand) createExam(snap store.Snapshot, step execution.Step) error {
	input := types.CreateExamTransaction{}

	err := json.NewDecoder(bytes.NewBuffer(step.Current.GetArg(CreateExamArg))).Decode(&input)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal CreateExamTransaction: %v", err)
	}

	err = validateExam(input, e.clock.Now().Unix())
	if err != nil {
		return err
	}

	id, err := nextExamID(snap)
	if err != nil {
		return xerrors.Errorf("failed to assign exam id: %v", err)
	}

	creator := step.Current.GetIdentity()

	exam := types.Exam{
		ExamID:        id,
		Title:         input.Title,
		QuestionCount: input.QuestionCount,
		MaxScores:     input.MaxScores,
		Threshold:     input.Threshold,
		StartTime:     input.StartTime,
		EndTime:       input.EndTime,
		Creator:       creator,
		Active:        true,
	}

	err = setRecord(snap, examKey(id), exam)
	if err != nil {
		return xerrors.Errorf("failed to set exam: %v", err)
	}

	err = e.access.Grant(snap, exam.Threshold, creator, e.ledger)
	if err != nil {
		return xerrors.Errorf("failed to grant threshold: %v", err)
	}

	eexam.Logger.Info().
		Str("contract", ContractName).
		Uint64("exam", uint64(id)).
		Msgf("exam '%s' created by %v", exam.Title, creator)

	e.events.notify(types.ExamCreated{
		ExamID:        id,
		Creator:       creator,
		Title:         exam.Title,
		QuestionCount: exam.QuestionCount,
		StartTime:     exam.StartTime,
		EndTime:       exam.EndTime,
	})

	return nil
}

// submitAnswers implements commands. It performs the SUBMIT_ANSWERS command.
// The per-question maximum is deliberately not checked against the encrypted
// scores; see the repository design notes.
func (e examCommand) submitAnswers(snap store.Snapshot, step execution.Step) error {
	input := types.SubmitAnswersTransaction{}

	err := json.NewDecoder(bytes.NewBuffer(step.Current.GetArg(SubmitAnswersArg))).Decode(&input)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal SubmitAnswersTransaction: %v", err)
	}

	exam, err := GetExam(snap, input.ExamID)
	if err != nil {
		return err
	}

	now := e.clock.Now().Unix()
	if exam.StatusAt(now) != types.StatusInProgress {
		return xerrors.Errorf("%w: status is %s", types.ErrExamNotInProgress, exam.StatusAt(now))
	}

	student := step.Current.GetIdentity()

	existing, err := snap.Get(submissionKey(input.ExamID, student))
	if err != nil {
		return xerrors.Errorf("failed to get submission: %v", err)
	}

	if len(existing) > 0 {
		return xerrors.Errorf("%w: student %v, exam %d", types.ErrAlreadySubmitted,
			student, input.ExamID)
	}

	if len(input.Scores) != exam.QuestionCount {
		return xerrors.Errorf("%w: got %d scores for %d questions",
			types.ErrScoreCountMismatch, len(input.Scores), exam.QuestionCount)
	}

	submission := types.Submission{
		ExamID:      input.ExamID,
		Student:     student,
		Scores:      input.Scores,
		SubmittedAt: now,
	}

	err = setRecord(snap, submissionKey(input.ExamID, student), submission)
	if err != nil {
		return xerrors.Errorf("failed to set submission: %v", err)
	}

	for _, score := range input.Scores {
		err = e.access.Grant(snap, score, student, e.ledger)
		if err != nil {
			return xerrors.Errorf("failed to grant score: %v", err)
		}
	}

	err = appendRoster(snap, input.ExamID, student)
	if err != nil {
		return xerrors.Errorf("failed to append roster: %v", err)
	}

	eexam.Logger.Info().
		Str("contract", ContractName).
		Uint64("exam", uint64(input.ExamID)).
		Msgf("answers submitted by %v", student)

	e.events.notify(types.AnswersSubmitted{
		ExamID:      input.ExamID,
		Student:     student,
		SubmittedAt: now,
	})

	return nil
}

// computeTotal implements commands. It performs the COMPUTE_TOTAL command: a
// sequential homomorphic fold of the score handles seeded with an encrypted
// zero, followed by a homomorphic comparison against the exam's threshold.
// Recomputation is safe: grants only widen and both derived values are
// overwritten with semantically identical ciphertexts.
func (e examCommand) computeTotal(snap store.Snapshot, step execution.Step) error {
	input := types.ComputeTotalTransaction{}

	err := json.NewDecoder(bytes.NewBuffer(step.Current.GetArg(ComputeTotalArg))).Decode(&input)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal ComputeTotalTransaction: %v", err)
	}

	submission, err := GetSubmission(snap, input.ExamID, input.Student)
	if err != nil {
		return err
	}

	exam, err := GetExam(snap, input.ExamID)
	if err != nil {
		return err
	}

	caller := step.Current.GetIdentity()
	if caller != input.Student && caller != exam.Creator {
		return xerrors.Errorf("%w: %v is neither the student nor the creator",
			types.ErrNotAuthorized, caller)
	}

	total, err := e.scheme.Zero()
	if err != nil {
		return xerrors.Errorf("failed to encrypt zero: %v", err)
	}

	for _, score := range submission.Scores {
		total, err = e.scheme.Add(total, score)
		if err != nil {
			return xerrors.Errorf("failed to add score: %v", err)
		}
	}

	passed, err := e.scheme.CmpGE(total, exam.Threshold)
	if err != nil {
		return xerrors.Errorf("failed to compare with threshold: %v", err)
	}

	submission.Total = total
	submission.Passed = passed

	err = setRecord(snap, submissionKey(input.ExamID, input.Student), submission)
	if err != nil {
		return xerrors.Errorf("failed to set submission: %v", err)
	}

	err = e.access.Grant(snap, total, input.Student, e.ledger)
	if err != nil {
		return xerrors.Errorf("failed to grant total: %v", err)
	}

	err = e.access.Grant(snap, passed, input.Student, e.ledger)
	if err != nil {
		return xerrors.Errorf("failed to grant judgment: %v", err)
	}

	eexam.Logger.Info().
		Str("contract", ContractName).
		Uint64("exam", uint64(input.ExamID)).
		Msgf("total computed for %v by %v", input.Student, caller)

	e.events.notify(types.TotalComputed{
		ExamID:  input.ExamID,
		Student: input.Student,
		Caller:  caller,
	})

	return nil
}

func validateExam(input types.CreateExamTransaction, now int64) error {
	if input.QuestionCount < 1 || input.QuestionCount > maxQuestions {
		return xerrors.Errorf("%w: question count must be in [1, %d], got %d",
			types.ErrInvalidExamParameters, maxQuestions, input.QuestionCount)
	}

	if len(input.MaxScores) != input.QuestionCount {
		return xerrors.Errorf("%w: got %d max scores for %d questions",
			types.ErrInvalidExamParameters, len(input.MaxScores), input.QuestionCount)
	}

	for i, max := range input.MaxScores {
		if max < 1 || max > maxScore {
			return xerrors.Errorf("%w: max score of question %d must be in [1, %d], got %d",
				types.ErrInvalidExamParameters, i, maxScore, max)
		}
	}

	if input.EndTime <= input.StartTime {
		return xerrors.Errorf("%w: end time must be after start time",
			types.ErrInvalidExamParameters)
	}

	if input.StartTime < now {
		return xerrors.Errorf("%w: start time is in the past",
			types.ErrInvalidExamParameters)
	}

	if input.Threshold.IsUnset() {
		return xerrors.Errorf("%w: threshold handle is unset",
			types.ErrInvalidExamParameters)
	}

	return nil
}
