package proposal_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
	"github.com/ignatzorin/deals-backend/internal/usecase/proposal"
)

const importHeader = "name,description,start_date,end_date,price,impressions,budget,auction_type,terms,section_ids\n"

func TestImport_PartialSuccess(t *testing.T) {
	env := newTestEnv()
	importer := proposal.NewImporter(env.lifecycle.Create)

	csv := importHeader +
		"Homepage,Top banner,2030-01-01,2030-02-01,10.5,1000,5000,fixed,,1;2\n" +
		"Broken,,,,abc,,,first,,1\n" +
		"Foreign sections,,,,3,,,second,,77\n" +
		"Footer,,2030-01-01T00:00:00Z,,1,,,first,no gambling,3\n"

	result, err := importer.Import(context.Background(), env.ownerID, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 2 || result.Failed != 2 {
		t.Fatalf("expected 2 created and 2 failed, got %d and %d", result.Created, result.Failed)
	}
	if len(result.Rows) != 4 {
		t.Fatalf("expected 4 row results, got %d", len(result.Rows))
	}

	first := result.Rows[0]
	if first.Line != 2 || first.ProposalID == nil {
		t.Fatalf("expected first data row on line 2 to be created, got %+v", first)
	}
	stored := env.repo.proposals[*first.ProposalID]
	if stored.Budget == nil || stored.Budget.Amount.String() != "5000" {
		t.Errorf("expected budget 5000, got %v", stored.Budget)
	}
	if stored.ImpressionsTarget != 1000 {
		t.Errorf("expected impressions 1000, got %d", stored.ImpressionsTarget)
	}
	if got := stored.SectionIDs.Int64s(); len(got) != 2 {
		t.Errorf("expected 2 sections, got %v", got)
	}

	if result.Rows[1].Error == "" || result.Rows[2].Error == "" {
		t.Error("expected errors for invalid rows")
	}
}

func TestImport_MissingRequiredColumn(t *testing.T) {
	env := newTestEnv()
	importer := proposal.NewImporter(env.lifecycle.Create)

	_, err := importer.Import(context.Background(), env.ownerID, strings.NewReader("name,price\nA,1\n"))
	if !apperror.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestImport_EmptyFile(t *testing.T) {
	env := newTestEnv()
	importer := proposal.NewImporter(env.lifecycle.Create)

	_, err := importer.Import(context.Background(), env.ownerID, strings.NewReader(""))
	if !apperror.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestImport_StoreFailureReportsCreatedRows(t *testing.T) {
	env := newTestEnv()
	calls := 0
	flaky := func(ctx context.Context, ownerID uuid.UUID, fields entity.ProposalFields) (*entity.Proposal, error) {
		calls++
		if calls == 2 {
			return nil, apperror.New(apperror.ErrCodeStoreUnavailable, "хранилище недоступно")
		}
		return env.lifecycle.Create(ctx, ownerID, fields)
	}
	importer := proposal.NewImporter(flaky)

	csv := importHeader +
		"A,,,,1,,,first,,1\n" +
		"B,,,,2,,,first,,1\n" +
		"C,,,,3,,,first,,1\n"

	result, err := importer.Import(context.Background(), env.ownerID, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Aborted {
		t.Fatal("expected import to be aborted")
	}
	if calls != 2 {
		t.Errorf("expected no create calls after the failure, got %d calls", calls)
	}
	if result.Created != 1 || result.Failed != 1 || result.Skipped != 1 {
		t.Fatalf("expected 1 created, 1 failed, 1 skipped, got %+v", result)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 row results, got %d", len(result.Rows))
	}
	created := result.Rows[0]
	if created.ProposalID == nil {
		t.Fatal("expected created row to carry its proposal id")
	}
	if _, ok := env.repo.proposals[*created.ProposalID]; !ok {
		t.Error("expected created proposal to be stored")
	}
	if result.Rows[1].Error == "" || result.Rows[2].Error == "" {
		t.Error("expected failed and skipped rows to carry errors")
	}
	if len(env.repo.proposals) != 1 {
		t.Errorf("expected exactly 1 stored proposal, got %d", len(env.repo.proposals))
	}
}

func TestImport_TooManyRowsCreatesNothing(t *testing.T) {
	env := newTestEnv()
	importer := proposal.NewImporter(env.lifecycle.Create)

	var b strings.Builder
	b.WriteString(importHeader)
	for i := 0; i <= proposal.MaxImportRows; i++ {
		b.WriteString("A,,,,1,,,first,,1\n")
	}

	_, err := importer.Import(context.Background(), env.ownerID, strings.NewReader(b.String()))
	if !apperror.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(env.repo.proposals) != 0 {
		t.Fatalf("expected no proposals to be created, got %d", len(env.repo.proposals))
	}
}

func TestImport_MaxRowsAccepted(t *testing.T) {
	var created int
	counting := func(ctx context.Context, ownerID uuid.UUID, fields entity.ProposalFields) (*entity.Proposal, error) {
		created++
		return &entity.Proposal{ID: uuid.New()}, nil
	}
	importer := proposal.NewImporter(counting)

	var b strings.Builder
	b.WriteString(importHeader)
	for i := 0; i < proposal.MaxImportRows; i++ {
		b.WriteString("A,,,,1,,,first,,1\n")
	}

	result, err := importer.Import(context.Background(), uuid.New(), strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != proposal.MaxImportRows || created != proposal.MaxImportRows {
		t.Fatalf("expected %d created, got %d", proposal.MaxImportRows, result.Created)
	}
}

func TestImport_MalformedCSVCreatesNothing(t *testing.T) {
	env := newTestEnv()
	importer := proposal.NewImporter(env.lifecycle.Create)

	csv := importHeader +
		"A,,,,1,,,first,,1\n" +
		"\"unterminated,,,,1,,,first,,1\n"

	_, err := importer.Import(context.Background(), env.ownerID, strings.NewReader(csv))
	if !apperror.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(env.repo.proposals) != 0 {
		t.Fatalf("expected no proposals to be created, got %d", len(env.repo.proposals))
	}
}
