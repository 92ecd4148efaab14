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

	"github.com/hirelink/hirelink/internal/contract/domain"
	contractrepo "github.com/hirelink/hirelink/internal/contract/repository"
	identitydomain "github.com/hirelink/hirelink/internal/identity/domain"
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
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:contractdb_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
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
	return gdb
}

type fakeIdentity struct {
	users     map[snowflake.ID]bool
	tradesmen map[snowflake.ID]bool
}

func (f *fakeIdentity) Authenticate(context.Context, string) (snowflake.ID, error) {
	return 0, identitydomain.ErrInvalidSession
}

func (f *fakeIdentity) GetUser(_ context.Context, id snowflake.ID) (identitydomain.User, error) {
	if f.users[id] || f.tradesmen[id] {
		return identitydomain.User{ID: id, Name: "user"}, nil
	}
	return identitydomain.User{}, identitydomain.ErrUserNotFound
}

func (f *fakeIdentity) GetTradesmanProfile(_ context.Context, userID snowflake.ID) (identitydomain.TradesmanProfile, error) {
	if f.tradesmen[userID] {
		return identitydomain.TradesmanProfile{UserID: userID, Trade: "plumbing"}, nil
	}
	return identitydomain.TradesmanProfile{}, identitydomain.ErrProfileNotFound
}

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	client   snowflake.ID
	provider snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	f := &fixture{
		client:   snowflake.ID(101),
		provider: snowflake.ID(202),
	}
	f.db = newTestDB(t)
	f.svc = New(Params{
		Log:  zap.NewNop(),
		DB:   f.db,
		Node: node,
		Repo: contractrepo.New(),
		Identity: &fakeIdentity{
			users:     map[snowflake.ID]bool{f.client: true},
			tradesmen: map[snowflake.ID]bool{f.provider: true},
		},
	})
	return f
}

// newSigned walks a fresh contract to signed.
func (f *fixture) newSigned(t *testing.T) *domain.Contract {
	t.Helper()
	ctx := context.Background()

	c, err := f.svc.Create(ctx, f.client, domain.CreateContractRequest{ProviderID: f.provider, Title: "Bathroom refit"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Send(ctx, f.provider, c.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := f.svc.Sign(ctx, f.client, c.ID); err != nil {
		t.Fatalf("client sign: %v", err)
	}
	signed, err := f.svc.Sign(ctx, f.provider, c.ID)
	if err != nil {
		t.Fatalf("provider sign: %v", err)
	}
	if signed.Status != domain.StatusSigned {
		t.Fatalf("expected signed, got %s", signed.Status)
	}
	return signed
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, f.client, domain.CreateContractRequest{ProviderID: f.provider, Title: "  "}); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if _, err := f.svc.Create(ctx, f.client, domain.CreateContractRequest{ProviderID: f.client, Title: "Bathroom refit"}); !errors.Is(err, domain.ErrInvalidParties) {
		t.Fatalf("expected ErrInvalidParties for self-contract, got %v", err)
	}
	if _, err := f.svc.Create(ctx, f.client, domain.CreateContractRequest{ProviderID: snowflake.ID(999), Title: "Bathroom refit"}); !errors.Is(err, domain.ErrInvalidParties) {
		t.Fatalf("expected ErrInvalidParties for unknown provider, got %v", err)
	}

	c, err := f.svc.Create(ctx, f.client, domain.CreateContractRequest{ProviderID: f.provider, Title: "Bathroom refit"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Status != domain.StatusDraft {
		t.Fatalf("expected draft, got %s", c.Status)
	}
	if c.SignedByClient || c.SignedByProvider {
		t.Fatalf("new contract must be unsigned")
	}
}

func TestCreateAsProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Create(ctx, f.provider, domain.CreateContractRequest{
		ClientID:   f.client,
		ProviderID: f.provider,
		Title:      "Boiler service",
	})
	if err != nil {
		t.Fatalf("create as provider: %v", err)
	}
	if c.ClientID != f.client || c.ProviderID != f.provider {
		t.Fatalf("parties misassigned: %+v", c)
	}

	if _, err := f.svc.Create(ctx, f.provider, domain.CreateContractRequest{
		ClientID:   snowflake.ID(777),
		ProviderID: f.provider,
		Title:      "Boiler service",
	}); !errors.Is(err, domain.ErrInvalidParties) {
		t.Fatalf("expected ErrInvalidParties for unknown client, got %v", err)
	}
}

func TestSigningFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Create(ctx, f.client, domain.CreateContractRequest{ProviderID: f.provider, Title: "Kitchen rewire"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// signing works straight from draft, no send step required
	got, err := f.svc.Sign(ctx, f.client, c.ID)
	if err != nil {
		t.Fatalf("client sign on draft: %v", err)
	}
	if got.Status != domain.StatusDraft || !got.SignedByClient {
		t.Fatalf("after one signature: status=%s signed_by_client=%v", got.Status, got.SignedByClient)
	}

	// re-sign is a no-op
	again, err := f.svc.Sign(ctx, f.client, c.ID)
	if err != nil {
		t.Fatalf("re-sign: %v", err)
	}
	if again.Status != domain.StatusDraft || again.SignedByProvider {
		t.Fatalf("re-sign must not advance anything, got %+v", again)
	}

	got, err = f.svc.Sign(ctx, f.provider, c.ID)
	if err != nil {
		t.Fatalf("provider sign: %v", err)
	}
	if got.Status != domain.StatusSigned {
		t.Fatalf("expected signed after both signatures, got %s", got.Status)
	}

	// re-signing a fully signed contract is still a no-op
	again, err = f.svc.Sign(ctx, f.provider, c.ID)
	if err != nil {
		t.Fatalf("re-sign after signed: %v", err)
	}
	if again.Status != domain.StatusSigned {
		t.Fatalf("re-sign must keep status signed, got %s", again.Status)
	}
}

func TestSendIsOptionalQuoteHandoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Create(ctx, f.client, domain.CreateContractRequest{ProviderID: f.provider, Title: "Loft conversion"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// only the provider sends the quote out
	if _, err := f.svc.Send(ctx, f.client, c.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	sent, err := f.svc.Send(ctx, f.provider, c.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Status != domain.StatusSent {
		t.Fatalf("expected sent, got %s", sent.Status)
	}

	// signing proceeds from sent too
	got, err := f.svc.Sign(ctx, f.client, c.ID)
	if err != nil {
		t.Fatalf("client sign on sent: %v", err)
	}
	if got.Status != domain.StatusSent || !got.SignedByClient {
		t.Fatalf("after one signature: status=%s signed_by_client=%v", got.Status, got.SignedByClient)
	}
	if got, err = f.svc.Sign(ctx, f.provider, c.ID); err != nil || got.Status != domain.StatusSigned {
		t.Fatalf("provider sign: status=%v err=%v", got.Status, err)
	}
}

func TestProviderCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newSigned(t)

	done, err := f.svc.Complete(ctx, f.provider, c.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}

	// terminal contracts reject everything
	if _, err := f.svc.Cancel(ctx, f.client, c.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on completed contract, got %v", err)
	}
	if _, err := f.svc.Sign(ctx, f.provider, c.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on completed contract, got %v", err)
	}
}

func TestClientCompletesOnlyWhenMilestonesPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newSigned(t)

	err := f.db.Exec(`INSERT INTO milestones (id, contract_id, title, amount, status) VALUES (1, ?, 'First fix', 5000, 'completed')`, c.ID).Error
	if err != nil {
		t.Fatalf("seed milestone: %v", err)
	}

	if _, err := f.svc.Complete(ctx, f.client, c.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition with unpaid milestone, got %v", err)
	}

	if err := f.db.Exec(`UPDATE milestones SET status = 'paid' WHERE id = 1`).Error; err != nil {
		t.Fatalf("pay milestone: %v", err)
	}

	done, err := f.svc.Complete(ctx, f.client, c.ID)
	if err != nil {
		t.Fatalf("complete after payout: %v", err)
	}
	if done.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
}

func TestCancelBeforeSigned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, _ := f.svc.Create(ctx, f.client, domain.CreateContractRequest{ProviderID: f.provider, Title: "Gutter clean"})
	if _, err := f.svc.Send(ctx, f.provider, c.ID); err != nil {
		t.Fatalf("send: %v", err)
	}

	cancelled, err := f.svc.Cancel(ctx, f.provider, c.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
}

func TestAuthorizationAndLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stranger := snowflake.ID(303)

	c, _ := f.svc.Create(ctx, f.client, domain.CreateContractRequest{ProviderID: f.provider, Title: "Deck build"})

	if _, err := f.svc.GetByID(ctx, stranger, c.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}
	if _, err := f.svc.GetByID(ctx, f.client, snowflake.ID(424242)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.GetByID(ctx, f.provider, c.ID); err != nil {
		t.Fatalf("provider lookup: %v", err)
	}
}

func TestUpdateDetailsFreezesOnSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, _ := f.svc.Create(ctx, f.client, domain.CreateContractRequest{ProviderID: f.provider, Title: "Roof patch"})

	amount := int64(45000)
	updated, err := f.svc.UpdateDetails(ctx, f.provider, c.ID, domain.UpdateContractRequest{TotalAmount: &amount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.TotalAmount == nil || *updated.TotalAmount != amount {
		t.Fatalf("amount not applied: %+v", updated.TotalAmount)
	}

	if _, err := f.svc.UpdateDetails(ctx, f.client, c.ID, domain.UpdateContractRequest{}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("client must not edit, got %v", err)
	}

	// still editable while sent, frozen once someone signs
	if _, err := f.svc.Send(ctx, f.provider, c.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := f.svc.UpdateDetails(ctx, f.provider, c.ID, domain.UpdateContractRequest{TotalAmount: &amount}); err != nil {
		t.Fatalf("update while sent: %v", err)
	}
	if _, err := f.svc.Sign(ctx, f.client, c.ID); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := f.svc.UpdateDetails(ctx, f.provider, c.ID, domain.UpdateContractRequest{TotalAmount: &amount}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after signature, got %v", err)
	}
}
