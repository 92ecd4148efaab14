package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	contractdomain "github.com/hirelink/hirelink/internal/contract/domain"
	contractrepo "github.com/hirelink/hirelink/internal/contract/repository"
	"github.com/hirelink/hirelink/internal/milestone/domain"
	milestonerepo "github.com/hirelink/hirelink/internal/milestone/repository"
)

var testDBSeq int64

var schema = []string{
	`CREATE TABLE contracts (
		id INTEGER PRIMARY KEY,
		client_id INTEGER NOT NULL,
		provider_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_date DATETIME,
		end_date DATETIME,
		total_amount INTEGER,
		status TEXT NOT NULL DEFAULT 'draft',
		signed_by_client BOOLEAN NOT NULL DEFAULT 0,
		signed_by_provider BOOLEAN NOT NULL DEFAULT 0,
		metadata TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE milestones (
		id INTEGER PRIMARY KEY,
		contract_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		amount INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		due_date DATETIME,
		completed_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE payments (
		id INTEGER PRIMARY KEY,
		milestone_id INTEGER NOT NULL,
		contract_id INTEGER NOT NULL,
		client_id INTEGER NOT NULL,
		provider_id INTEGER NOT NULL,
		amount INTEGER NOT NULL,
		gateway TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		external_reference TEXT UNIQUE,
		completed_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	client   snowflake.ID
	provider snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:milestonedb_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := gdb.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	f := &fixture{
		db:       gdb,
		client:   snowflake.ID(101),
		provider: snowflake.ID(202),
	}
	f.svc = New(Params{
		Log:       zap.NewNop(),
		DB:        gdb,
		Node:      node,
		Repo:      milestonerepo.New(),
		Contracts: contractrepo.New(),
	})
	return f
}

func (f *fixture) seedContract(t *testing.T, status contractdomain.ContractStatus) snowflake.ID {
	t.Helper()

	id := snowflake.ID(atomic.AddInt64(&testDBSeq, 1) * 1000)
	err := f.db.Exec(
		`INSERT INTO contracts (id, client_id, provider_id, title, status) VALUES (?, ?, ?, 'Bathroom refit', ?)`,
		id, f.client, f.provider, string(status),
	).Error
	if err != nil {
		t.Fatalf("seed contract: %v", err)
	}
	return id
}

func TestAddRequiresSignedContractAndProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := domain.AddMilestoneRequest{Title: "First fix", Amount: 5000}

	draft := f.seedContract(t, contractdomain.StatusDraft)
	if _, err := f.svc.Add(ctx, f.provider, draft, req); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on draft contract, got %v", err)
	}

	signed := f.seedContract(t, contractdomain.StatusSigned)
	if _, err := f.svc.Add(ctx, f.client, signed, req); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for client, got %v", err)
	}
	if _, err := f.svc.Add(ctx, f.provider, signed, domain.AddMilestoneRequest{Title: "First fix", Amount: 0}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := f.svc.Add(ctx, f.provider, signed, domain.AddMilestoneRequest{Title: "  ", Amount: 5000}); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if _, err := f.svc.Add(ctx, f.provider, snowflake.ID(999999), req); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	m, err := f.svc.Add(ctx, f.provider, signed, req)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if m.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", m.Status)
	}
}

func TestAddCarriesDescription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signed := f.seedContract(t, contractdomain.StatusSigned)

	m, err := f.svc.Add(ctx, f.provider, signed, domain.AddMilestoneRequest{
		Title:       "First fix",
		Description: "  Plumbing and electrics to first fix stage ",
		Amount:      5000,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if m.Description != "Plumbing and electrics to first fix stage" {
		t.Fatalf("description not stored trimmed: %q", m.Description)
	}

	got, err := f.svc.GetByID(ctx, f.provider, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description != m.Description {
		t.Fatalf("description lost on reload: %q", got.Description)
	}

	// description stays optional
	bare, err := f.svc.Add(ctx, f.provider, signed, domain.AddMilestoneRequest{Title: "Second fix", Amount: 3000})
	if err != nil {
		t.Fatalf("add without description: %v", err)
	}
	if bare.Description != "" {
		t.Fatalf("expected empty description, got %q", bare.Description)
	}
}

func TestMarkCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	contractID := f.seedContract(t, contractdomain.StatusSigned)
	m, err := f.svc.Add(ctx, f.provider, contractID, domain.AddMilestoneRequest{Title: "First fix", Amount: 5000})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := f.svc.MarkCompleted(ctx, f.client, m.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for client, got %v", err)
	}

	done, err := f.svc.MarkCompleted(ctx, f.provider, m.ID)
	if err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if done.Status != domain.StatusCompleted || done.CompletedAt == nil {
		t.Fatalf("unexpected milestone after completion: %+v", done)
	}

	if _, err := f.svc.MarkCompleted(ctx, f.provider, m.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on re-complete, got %v", err)
	}
}

func TestDeleteBlockedWhenPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	contractID := f.seedContract(t, contractdomain.StatusSigned)
	m, err := f.svc.Add(ctx, f.provider, contractID, domain.AddMilestoneRequest{Title: "Second fix", Amount: 7500})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := f.svc.Delete(ctx, f.client, m.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for client, got %v", err)
	}

	if err := f.db.Exec(`UPDATE milestones SET status = 'paid' WHERE id = ?`, m.ID).Error; err != nil {
		t.Fatalf("pay milestone: %v", err)
	}
	if err := f.svc.Delete(ctx, f.provider, m.ID); !errors.Is(err, domain.ErrMilestonePaid) {
		t.Fatalf("expected ErrMilestonePaid, got %v", err)
	}

	if err := f.db.Exec(`UPDATE milestones SET status = 'pending' WHERE id = ?`, m.ID).Error; err != nil {
		t.Fatalf("reset milestone: %v", err)
	}
	if err := f.svc.Delete(ctx, f.provider, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.GetByID(ctx, f.provider, m.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteWithPaymentHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	contractID := f.seedContract(t, contractdomain.StatusSigned)
	m, err := f.svc.Add(ctx, f.provider, contractID, domain.AddMilestoneRequest{Title: "Second fix", Amount: 7500})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	seedPayment := func(id int64, status, reference string) {
		t.Helper()
		err := f.db.Exec(
			`INSERT INTO payments (id, milestone_id, contract_id, client_id, provider_id, amount, gateway, status, external_reference)
			 VALUES (?, ?, ?, ?, ?, 7500, 'cardlink', ?, ?)`,
			id, m.ID, contractID, f.client, f.provider, status, reference,
		).Error
		if err != nil {
			t.Fatalf("seed payment: %v", err)
		}
	}

	// an in-flight payment pins the milestone
	seedPayment(1, "processing", "in_1")
	if err := f.svc.Delete(ctx, f.provider, m.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition with in-flight payment, got %v", err)
	}

	// a failed attempt does not; delete takes the attempt rows with it
	if err := f.db.Exec(`UPDATE payments SET status = 'failed' WHERE id = 1`).Error; err != nil {
		t.Fatalf("fail payment: %v", err)
	}
	if err := f.svc.Delete(ctx, f.provider, m.ID); err != nil {
		t.Fatalf("delete with failed attempt: %v", err)
	}

	var remaining int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM payments WHERE milestone_id = ?`, m.ID).Scan(&remaining).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected payment rows removed with the milestone, got %d", remaining)
	}
}

func TestListByContract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	contractID := f.seedContract(t, contractdomain.StatusSigned)
	for i, title := range []string{"Strip out", "First fix", "Second fix"} {
		if _, err := f.svc.Add(ctx, f.provider, contractID, domain.AddMilestoneRequest{Title: title, Amount: int64(1000 * (i + 1))}); err != nil {
			t.Fatalf("add %q: %v", title, err)
		}
	}

	got, err := f.svc.ListByContract(ctx, f.client, contractID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 milestones, got %d", len(got))
	}

	if _, err := f.svc.ListByContract(ctx, snowflake.ID(303), contractID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}
}
