package exam

import (
	"context"
	"sync"

	eexam "github.com/dedis/e-exam"
	"github.com/dedis/e-exam/contracts/exam/types"
	"github.com/dedis/e-exam/core/access"
	"github.com/dedis/e-exam/core/execution"
	"github.com/dedis/e-exam/core/execution/native"
	"github.com/dedis/e-exam/core/fhe"
	"github.com/dedis/e-exam/core/store"
	"github.com/dedis/e-exam/core/store/prefixed"
	"github.com/dedis/e-exam/core/txn"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/xerrors"
)

var promTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "eexam_ledger_transitions_total",
	Help: "Total number of ledger transitions, by command and outcome",
}, []string{"command", "accepted"})

func init() {
	eexam.PromCollectors = append(eexam.PromCollectors, promTransitions)
}

// RegisterContract registers the exam contract to the given execution
// service.
func RegisterContract(exec *native.Service, c *Contract) {
	exec.Set(ContractName, c)
}

// Service is the ledger facade of the exam contract for a single node. It
// serializes the transitions, scopes the contract to its own key space and
// exposes the read operations over a consistent snapshot.
type Service struct {
	sync.Mutex

	snap     store.Snapshot
	exec     *native.Service
	contract *Contract
}

// NewService creates a ledger service around the given substrate snapshot.
func NewService(ledger access.Address, srvc access.Service, scheme fhe.Scheme,
	snap store.Snapshot) *Service {

	return NewServiceWithClock(ledger, srvc, scheme, snap, realClock{})
}

// NewServiceWithClock creates a ledger service whose transitions are
// validated against the given clock, so that a caller scheduling an exam
// relative to its own clock never races the wall clock.
func NewServiceWithClock(ledger access.Address, srvc access.Service,
	scheme fhe.Scheme, snap store.Snapshot, clock Clock) *Service {

	contract := NewContract(ledger, srvc, scheme)
	contract.clock = clock

	exec := native.NewExecution()
	RegisterContract(exec, contract)

	return &Service{
		snap:     prefixed.NewSnapshot(ContractUID, snap),
		exec:     exec,
		contract: contract,
	}
}

// Execute applies the transaction to the ledger. Transitions are serialized:
// two writes never interleave against the same record.
func (s *Service) Execute(tx txn.Transaction) (execution.Result, error) {
	s.Lock()
	defer s.Unlock()

	res, err := s.exec.Execute(s.snap, execution.Step{Current: tx})
	if err != nil {
		return res, xerrors.Errorf("failed to execute transaction: %v", err)
	}

	cmd := string(tx.GetArg(CmdArg))

	if res.Accepted {
		promTransitions.WithLabelValues(cmd, "true").Inc()
	} else {
		promTransitions.WithLabelValues(cmd, "false").Inc()

		eexam.Logger.Warn().
			Str("contract", ContractName).
			Str("command", cmd).
			Msgf("transition rejected: %s", res.Message)
	}

	return res, nil
}

// GetExamInfo returns the public record of the exam.
func (s *Service) GetExamInfo(id types.ExamID) (types.Exam, error) {
	return GetExam(s.snap, id)
}

// GetExamStatus returns the status of the exam at the current time.
func (s *Service) GetExamStatus(id types.ExamID) (types.Status, error) {
	exam, err := GetExam(s.snap, id)
	if err != nil {
		return "", err
	}

	return exam.StatusAt(s.contract.clock.Now().Unix()), nil
}

// GetSubmission returns the submission of the student for the exam.
func (s *Service) GetSubmission(id types.ExamID, student access.Address) (types.Submission, error) {
	return GetSubmission(s.snap, id, student)
}

// GetRoster returns the students that submitted answers for the exam.
func (s *Service) GetRoster(id types.ExamID) ([]access.Address, error) {
	return GetRoster(s.snap, id)
}

// Reader returns a read-only view of the contract's key space, scoped the
// same way the transitions are. The reveal service reads grant sets through
// it.
func (s *Service) Reader() store.Readable {
	return snapshotReader{snap: s.snap}
}

// Watch returns a channel delivering the notification events of successful
// transitions. The channel closes when the context gets canceled.
func (s *Service) Watch(ctx context.Context) <-chan types.Event {
	return s.contract.events.subscribe(ctx)
}

// snapshotReader hides the writable half of the service snapshot. The
// snapshot is already prefixed, so the reader unwraps to raw gets.
//
// - implements store.Readable
type snapshotReader struct {
	snap store.Snapshot
}

func (r snapshotReader) Get(key []byte) ([]byte, error) {
	return r.snap.Get(key)
}
