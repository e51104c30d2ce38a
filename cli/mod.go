// Package cli provides the command line application of the exam ledger demo.
// The demo command runs the complete flow on in-memory components: a teacher
// creates an exam, a student submits encrypted scores, the ledger aggregates
// them homomorphically and the student reveals the outcome with a signed
// capability.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dedis/e-exam"
	"github.com/dedis/e-exam/client/capability"
	"github.com/dedis/e-exam/client/reveal"
	"github.com/dedis/e-exam/contracts/exam"
	"github.com/dedis/e-exam/contracts/exam/types"
	"github.com/dedis/e-exam/core/access"
	"github.com/dedis/e-exam/core/access/grantset"
	"github.com/dedis/e-exam/core/execution/native"
	"github.com/dedis/e-exam/core/fhe"
	"github.com/dedis/e-exam/core/fhe/vault"
	"github.com/dedis/e-exam/core/store/kv"
	"github.com/dedis/e-exam/core/store/mem"
	"github.com/dedis/e-exam/core/txn"
	"github.com/dedis/e-exam/core/txn/signed"
	"github.com/dedis/e-exam/crypto/schnorr"
	ucli "github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

// NewApp creates the application.
func NewApp() *ucli.App {
	app := &ucli.App{
		Name:  "eexam",
		Usage: "confidential exam ledger",
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:  "config",
				Usage: "path of the YAML node configuration",
			},
		},
		Commands: []*ucli.Command{
			{
				Name:   "demo",
				Usage:  "run the complete exam flow on a single node",
				Action: demoAction,
			},
		},
	}

	app.Setup()

	return app
}

func demoAction(ctx *ucli.Context) error {
	config, err := LoadConfig(ctx.String("config"))
	if err != nil {
		return xerrors.Errorf("failed to load config: %v", err)
	}

	v := vault.NewVault()
	srvc := grantset.NewService()

	ledger, err := makeIdentity(schnorr.NewSigner())
	if err != nil {
		return err
	}

	teacher, err := makeIdentity(schnorr.NewSigner())
	if err != nil {
		return err
	}

	student := schnorr.NewSigner()

	studentAddr, err := makeIdentity(student)
	if err != nil {
		return err
	}

	// The demo schedules the exam relative to this instant, so the ledger
	// validates against the same frozen clock instead of racing wall time.
	clock := fixedClock{instant: time.Now()}

	examSrvc := exam.NewServiceWithClock(ledger, srvc, v, mem.NewSnapshot(), clock)

	watchCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := examSrvc.Watch(watchCtx)

	now := clock.Now().Unix()

	err = createExam(examSrvc, v, config, teacher, now)
	if err != nil {
		return xerrors.Errorf("failed to create exam: %v", err)
	}

	err = submitAnswers(examSrvc, v, config, studentAddr)
	if err != nil {
		return xerrors.Errorf("failed to submit answers: %v", err)
	}

	err = computeTotal(examSrvc, studentAddr)
	if err != nil {
		return xerrors.Errorf("failed to compute total: %v", err)
	}

	cap, err := obtainCapability(config, student, studentAddr, ledger)
	if err != nil {
		return xerrors.Errorf("failed to obtain capability: %v", err)
	}

	submission, err := examSrvc.GetSubmission(1, studentAddr)
	if err != nil {
		return xerrors.Errorf("failed to read submission: %v", err)
	}

	values, err := reveal.NewService(v, srvc, examSrvc.Reader()).Reveal(cap, []reveal.HandleRef{
		{Handle: submission.Total, Contract: ledger, Kind: reveal.KindInteger},
		{Handle: submission.Passed, Contract: ledger, Kind: reveal.KindBoolean},
	})
	if err != nil {
		return xerrors.Errorf("failed to reveal: %v", err)
	}

	drain(events)

	fmt.Fprintf(ctx.App.Writer, "total: %d\n", values[submission.Total.String()].Integer)
	fmt.Fprintf(ctx.App.Writer, "passed: %v\n", values[submission.Passed.String()].Boolean)

	return nil
}

func createExam(srvc *exam.Service, scheme fhe.Scheme, config Config,
	teacher access.Address, now int64) error {

	threshold, err := scheme.Encrypt(config.Threshold)
	if err != nil {
		return xerrors.Errorf("failed to encrypt threshold: %v", err)
	}

	input := types.CreateExamTransaction{
		Title:         config.Title,
		QuestionCount: len(config.MaxScores),
		MaxScores:     config.MaxScores,
		Threshold:     threshold,
		StartTime:     now,
		EndTime:       now + 3600,
	}

	return execute(srvc, teacher, 0, exam.CmdCreateExam, exam.CreateExamArg, input)
}

func submitAnswers(srvc *exam.Service, scheme fhe.Scheme, config Config,
	student access.Address) error {

	scores := make([]fhe.Handle, len(config.Scores))
	for i, score := range config.Scores {
		handle, err := scheme.Encrypt(score)
		if err != nil {
			return xerrors.Errorf("failed to encrypt score: %v", err)
		}

		scores[i] = handle
	}

	input := types.SubmitAnswersTransaction{ExamID: 1, Scores: scores}

	return execute(srvc, student, 0, exam.CmdSubmitAnswers, exam.SubmitAnswersArg, input)
}

func computeTotal(srvc *exam.Service, student access.Address) error {
	input := types.ComputeTotalTransaction{ExamID: 1, Student: student}

	return execute(srvc, student, 1, exam.CmdComputeTotal, exam.ComputeTotalArg, input)
}

// obtainCapability derives the student's reusable capability, persisting it in
// the cache database so a second run reuses it without a new signature.
func obtainCapability(config Config, signer schnorr.Signer, student access.Address,
	ledger access.Address) (capability.Capability, error) {

	db, err := kv.New(config.DBPath)
	if err != nil {
		return capability.Capability{}, xerrors.Errorf("failed to open db: %v", err)
	}

	defer db.Close()

	deriver := capability.NewDeriver(capability.NewCache(db))

	return deriver.Obtain(student, []access.Address{ledger}, signer.Sign)
}

func execute(srvc *exam.Service, ident access.Address, nonce uint64,
	cmd exam.Command, arg string, input interface{}) error {

	buffer, err := json.Marshal(input)
	if err != nil {
		return xerrors.Errorf("failed to marshal input: %v", err)
	}

	tx, err := makeTx(ident, nonce,
		txn.Arg{Key: native.ContractArg, Value: []byte(exam.ContractName)},
		txn.Arg{Key: exam.CmdArg, Value: []byte(cmd)},
		txn.Arg{Key: arg, Value: buffer})
	if err != nil {
		return err
	}

	res, err := srvc.Execute(tx)
	if err != nil {
		return err
	}

	if !res.Accepted {
		return xerrors.Errorf("transaction rejected: %s", res.Message)
	}

	return nil
}

func makeTx(ident access.Address, nonce uint64, args ...txn.Arg) (txn.Transaction, error) {
	options := make([]signed.TransactionOption, len(args))
	for i, arg := range args {
		options[i] = signed.WithArg(arg.Key, arg.Value)
	}

	tx, err := signed.NewTransaction(nonce, ident, options...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create transaction: %v", err)
	}

	return tx, nil
}

// fixedClock pins the ledger clock of the demo to one instant.
//
// - implements exam.Clock
type fixedClock struct {
	instant time.Time
}

func (c fixedClock) Now() time.Time {
	return c.instant
}

func makeIdentity(signer schnorr.Signer) (access.Address, error) {
	addr, err := capability.AddressOf(signer.GetPublicKey())
	if err != nil {
		return "", xerrors.Errorf("failed to derive address: %v", err)
	}

	return addr, nil
}

// drain logs the events emitted by the ledger during the demo.
func drain(events <-chan types.Event) {
	for {
		select {
		case event := <-events:
			eexam.Logger.Info().Msgf("event: %#v", event)
		default:
			return
		}
	}
}
