package record

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atharva9604/conversational-insights-generator/pkg/insight"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("opening sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("opening gorm over sqlmock: %v", err)
	}

	return NewRepository(db), mock
}

func neutralInsight() insight.ValidatedInsight {
	return insight.ValidatedInsight{
		CustomerIntent: "Promise to Pay (PTP) - Wednesday",
		Sentiment:      insight.SentimentNeutral,
		ActionRequired: true,
		Summary:        "EMI overdue by 7 days; customer committed to a PTP for Wednesday.",
	}
}

func TestInsertCommitsWholeRecordInOneTransaction(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "call_records"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	rec, err := repo.Insert(context.Background(), "Agent: EMI due hai. Customer: Wednesday ko pakka.", neutralInsight(), map[string]interface{}{"campaign": "post-due"})
	if err != nil {
		t.Fatalf("expected insert to succeed: %v", err)
	}
	if rec.ID != 7 {
		t.Fatalf("expected assigned sequential id 7, got %d", rec.ID)
	}
	if rec.UniqueID.String() == "" || rec.UniqueID.Version() != 4 {
		t.Fatalf("expected a generated v4 UUID, got %s", rec.UniqueID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected begin/insert/commit, nothing else: %v", err)
	}
}

func TestInsertRollsBackAndClassifiesFailure(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "call_records"`)).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "idx_call_records_unique_id"`))
	mock.ExpectRollback()

	_, err := repo.Insert(context.Background(), "Agent: hello ji. Customer: hello.", neutralInsight(), nil)

	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if pe.Class != FailureConstraint {
		t.Fatalf("expected constraint_violation, got %s", pe.Class)
	}
	// A rollback with no commit means the failed row was never left visible.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected the transaction to roll back: %v", err)
	}
}

func TestInsertRejectsOversizedMetadataBeforeTouchingTheDatabase(t *testing.T) {
	repo, mock := newMockRepository(t)

	huge := map[string]interface{}{"blob": strings.Repeat("x", maxMetadataBytes+1)}
	_, err := repo.Insert(context.Background(), "Agent: hi. Customer: hi.", neutralInsight(), huge)

	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.Class != FailureConstraint {
		t.Fatalf("expected constraint-classed failure, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no database traffic for unstorable metadata: %v", err)
	}
}

func TestClassifyConstraintViolations(t *testing.T) {
	cases := []error{
		gorm.ErrDuplicatedKey,
		errors.New(`ERROR: duplicate key value violates unique constraint "idx_call_records_unique_id"`),
		errors.New(`ERROR: new row for relation "call_records" violates check constraint`),
	}
	for _, err := range cases {
		if got := classify(err); got != FailureConstraint {
			t.Fatalf("expected constraint_violation for %v, got %s", err, got)
		}
	}
}

func TestClassifyConnectionFailures(t *testing.T) {
	cases := []error{
		context.DeadlineExceeded,
		context.Canceled,
		&net.OpError{Op: "dial", Err: errors.New("refused")},
		errors.New("driver: bad connection"),
		errors.New("write tcp: broken pipe"),
	}
	for _, err := range cases {
		if got := classify(err); got != FailureConnection {
			t.Fatalf("expected connection_lost for %v, got %s", err, got)
		}
	}
}

func TestClassifyUnknownFallback(t *testing.T) {
	if got := classify(errors.New("something odd happened")); got != FailureUnknown {
		t.Fatalf("expected unknown, got %s", got)
	}
}

func TestValidateMetadataSizeLimit(t *testing.T) {
	if err := validateMetadata(nil); err != nil {
		t.Fatalf("nil metadata must be storable: %v", err)
	}
	if err := validateMetadata(map[string]interface{}{"agent_id": "AG-204", "campaign": "pre-due"}); err != nil {
		t.Fatalf("small metadata must be storable: %v", err)
	}

	huge := map[string]interface{}{"blob": strings.Repeat("x", maxMetadataBytes+1)}
	if err := validateMetadata(huge); err == nil {
		t.Fatal("expected oversized metadata to be rejected")
	}
}

func TestValidateMetadataRejectsUnencodable(t *testing.T) {
	bad := map[string]interface{}{"ch": make(chan int)}
	if err := validateMetadata(bad); err == nil {
		t.Fatal("expected unencodable metadata to be rejected")
	}
}

func TestPersistenceErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewPersistenceError(FailureConnection, cause)

	if err.Class != FailureConnection {
		t.Fatalf("expected connection_lost class, got %s", err.Class)
	}

	if !IsPersistenceError(err) {
		t.Fatal("expected IsPersistenceError to match")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected underlying cause to be reachable via errors.Is")
	}
}
