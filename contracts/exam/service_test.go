package exam

import (
	"context"
	"testing"
	"time"

	"github.com/dedis/e-exam/contracts/exam/types"
	"github.com/dedis/e-exam/core/access"
	"github.com/dedis/e-exam/core/access/grantset"
	"github.com/dedis/e-exam/core/execution/native"
	"github.com/dedis/e-exam/core/fhe/vault"
	"github.com/dedis/e-exam/core/store/mem"
	"github.com/dedis/e-exam/core/txn/signed"
	"github.com/dedis/e-exam/internal/testing/fake"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestService_Execute(t *testing.T) {
	srvc, v := makeService(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := srvc.Watch(ctx)

	args := makeCreateArgs(t, v, 2, []int{50, 50}, 100, 200)
	res, err := srvc.Execute(makeTx(t, teacherAddr,
		CmdArg, "CREATE_EXAM", CreateExamArg, args))
	require.NoError(t, err)
	require.True(t, res.Accepted)

	evt := <-events
	created, ok := evt.(types.ExamCreated)
	require.True(t, ok)
	require.Equal(t, types.ExamID(1), created.ExamID)
	require.Equal(t, teacherAddr, created.Creator)
	require.Equal(t, "algebra", created.Title)

	// A rejected transition reports the reason and emits no event.
	res, err = srvc.Execute(makeTx(t, teacherAddr,
		CmdArg, "CREATE_EXAM", CreateExamArg, []byte("oops")))
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Contains(t, res.Message, "failed to CREATE_EXAM")

	_, err = srvc.Execute(makeTx(t, teacherAddr))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown contract")
}

func TestService_EndToEnd(t *testing.T) {
	srvc, v := makeService(t)
	srvc.contract.clock = fake.NewClock(time.Unix(150, 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := srvc.Watch(ctx)

	args := makeCreateArgs(t, v, 3, []int{30, 30, 40}, 150, 200)
	res, err := srvc.Execute(makeTx(t, teacherAddr,
		CmdArg, "CREATE_EXAM", CreateExamArg, args))
	require.NoError(t, err)
	require.True(t, res.Accepted, res.Message)
	<-events

	submitArgs := makeSubmitArgs(t, v, 1, 3)
	res, err = srvc.Execute(makeTx(t, studentAddr,
		CmdArg, "SUBMIT_ANSWERS", SubmitAnswersArg, submitArgs))
	require.NoError(t, err)
	require.True(t, res.Accepted, res.Message)

	evt := <-events
	submitted, ok := evt.(types.AnswersSubmitted)
	require.True(t, ok)
	require.Equal(t, studentAddr, submitted.Student)

	computeArgs := makeComputeArgs(t, 1, studentAddr)
	res, err = srvc.Execute(makeTx(t, studentAddr,
		CmdArg, "COMPUTE_TOTAL", ComputeTotalArg, computeArgs))
	require.NoError(t, err)
	require.True(t, res.Accepted, res.Message)

	evt = <-events
	computed, ok := evt.(types.TotalComputed)
	require.True(t, ok)
	require.Equal(t, studentAddr, computed.Caller)

	submission, err := srvc.GetSubmission(1, studentAddr)
	require.NoError(t, err)
	require.False(t, submission.Total.IsUnset())

	roster, err := srvc.GetRoster(1)
	require.NoError(t, err)
	require.Equal(t, []access.Address{studentAddr}, roster)

	// Grant sets are readable through the service reader.
	reader := srvc.Reader()
	require.NoError(t, grantset.NewService().Match(reader, submission.Total, studentAddr))
	require.Error(t, grantset.NewService().Match(reader, submission.Total, "eve"))
}

func TestService_GetExamInfo(t *testing.T) {
	srvc, v := makeService(t)

	_, err := srvc.GetExamInfo(1)
	require.True(t, xerrors.Is(err, types.ErrExamNotFound))

	args := makeCreateArgs(t, v, 2, []int{40, 60}, 100, 200)
	res, err := srvc.Execute(makeTx(t, teacherAddr,
		CmdArg, "CREATE_EXAM", CreateExamArg, args))
	require.NoError(t, err)
	require.True(t, res.Accepted, res.Message)

	exam, err := srvc.GetExamInfo(1)
	require.NoError(t, err)
	require.Equal(t, "algebra", exam.Title)
	require.Equal(t, 2, exam.QuestionCount)
	require.Equal(t, []int{40, 60}, exam.MaxScores)
	require.Equal(t, int64(100), exam.StartTime)
	require.Equal(t, int64(200), exam.EndTime)
}

func TestService_GetExamStatus(t *testing.T) {
	srvc, v := makeService(t)

	args := makeCreateArgs(t, v, 1, []int{50}, 100, 200)
	res, err := srvc.Execute(makeTx(t, teacherAddr,
		CmdArg, "CREATE_EXAM", CreateExamArg, args))
	require.NoError(t, err)
	require.True(t, res.Accepted, res.Message)

	table := []struct {
		now      int64
		expected types.Status
	}{
		{99, types.StatusNotStarted},
		{100, types.StatusInProgress},
		{200, types.StatusInProgress},
		{201, types.StatusEnded},
	}

	for _, entry := range table {
		srvc.contract.clock = fake.NewClock(time.Unix(entry.now, 0))

		status, err := srvc.GetExamStatus(1)
		require.NoError(t, err)
		require.Equal(t, entry.expected, status, "at %d", entry.now)
	}

	_, err = srvc.GetExamStatus(42)
	require.True(t, xerrors.Is(err, types.ErrExamNotFound))
}

// -----------------------------------------------------------------------------
// Utility functions

func makeService(t *testing.T) (*Service, *vault.Vault) {
	v := vault.NewVault()

	srvc := NewService(ledgerAddr, grantset.NewService(), v, mem.NewSnapshot())
	srvc.contract.clock = fake.NewClock(time.Unix(80, 0))

	return srvc, v
}

func makeTx(t *testing.T, ident access.Address, args ...interface{}) *signed.Transaction {
	options := []signed.TransactionOption{}

	if len(args) > 0 {
		options = append(options, signed.WithArg(native.ContractArg, []byte(ContractName)))
	}

	for i := 0; i < len(args)-1; i += 2 {
		key := args[i].(string)

		var value []byte
		switch v := args[i+1].(type) {
		case string:
			value = []byte(v)
		case []byte:
			value = v
		}

		options = append(options, signed.WithArg(key, value))
	}

	tx, err := signed.NewTransaction(0, ident, options...)
	require.NoError(t, err)

	return tx
}
