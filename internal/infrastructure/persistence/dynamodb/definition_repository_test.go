package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/domain/reporterr"
	"github.com/dreschagin/monitoring-reports/internal/domain/repository"
	"github.com/dreschagin/monitoring-reports/internal/domain/valueobject"
)

// fakeTable keeps items by PK and serves Scan one item per page.
type fakeTable struct {
	items     map[string]map[string]types.AttributeValue
	order     []string
	scanCalls int
	puts      []*dynamodb.PutItemInput
	getErr    error
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeTable) put(item map[string]types.AttributeValue) {
	pk := item[attrPK].(*types.AttributeValueMemberS).Value
	if _, ok := f.items[pk]; !ok {
		f.order = append(f.order, pk)
	}
	f.items[pk] = item
}

func (f *fakeTable) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scanCalls++

	start := 0
	if params.ExclusiveStartKey != nil {
		last := params.ExclusiveStartKey[attrPK].(*types.AttributeValueMemberS).Value
		for i, pk := range f.order {
			if pk == last {
				start = i + 1
			}
		}
	}
	if start >= len(f.order) {
		return &dynamodb.ScanOutput{}, nil
	}

	pk := f.order[start]
	out := &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{f.items[pk]}}
	if start+1 < len(f.order) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{attrPK: f.items[pk][attrPK]}
	}
	return out, nil
}

func (f *fakeTable) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	pk := params.Key[attrPK].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[pk]}, nil
}

func (f *fakeTable) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, params)
	f.put(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func testDefinition(name string) *entity.ReportDefinition {
	return &entity.ReportDefinition{
		Hostgroup:  entity.Hostgroup{ID: "10", Name: name},
		Recipients: []string{"ops@example.com"},
		Cadence:    valueobject.CadenceWeekly,
		Hosts:      []entity.Host{{ID: "100", Graphs: []entity.Graph{{ID: "501"}}}},
	}
}

func TestDefinitionRepository_SaveAndLoad(t *testing.T) {
	table := newFakeTable()
	repo := newDefinitionRepository(table, " reports ", true)
	repo.now = func() time.Time { return time.UnixMilli(1754805600000) }
	ctx := context.Background()

	def := testDefinition("ACME")
	def.MarkSent("2025-31", time.Date(2025, time.August, 11, 6, 0, 0, 0, time.UTC))
	if err := repo.Save(ctx, "acme", def); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	put := table.puts[0]
	if *put.TableName != "reports" {
		t.Errorf("table name = %q", *put.TableName)
	}
	if v := put.Item[attrPK].(*types.AttributeValueMemberS).Value; v != "DEFINITION#acme" {
		t.Errorf("pk = %q", v)
	}
	if v := put.Item[attrLastPeriodLabel].(*types.AttributeValueMemberS).Value; v != "2025-31" {
		t.Errorf("last period label = %q", v)
	}
	if v := put.Item[attrCadence].(*types.AttributeValueMemberS).Value; v != "weekly" {
		t.Errorf("cadence = %q", v)
	}
	if v := put.Item[attrUpdatedAt].(*types.AttributeValueMemberN).Value; v != "1754805600000" {
		t.Errorf("updated_at = %q", v)
	}

	loaded, err := repo.Load(ctx, "acme")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.ID != "acme" || loaded.Hostgroup.Name != "ACME" || loaded.DispatchState.LastPeriodLabel != "2025-31" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestDefinitionRepository_ListPaginates(t *testing.T) {
	table := newFakeTable()
	repo := newDefinitionRepository(table, "reports", false)
	ctx := context.Background()

	for _, id := range []string{"zeta", "acme", "beta"} {
		if err := repo.Save(ctx, repository.DefinitionRef(id), testDefinition(id)); err != nil {
			t.Fatal(err)
		}
	}
	table.put(map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: "DEFINITION#orphan"},
		attrSK: &types.AttributeValueMemberS{Value: definitionSK},
	})

	refs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if table.scanCalls != 4 {
		t.Errorf("expected 4 scan pages, got %d", table.scanCalls)
	}
	want := []string{"acme", "beta", "zeta"}
	if len(refs) != len(want) {
		t.Fatalf("List() = %v", refs)
	}
	for i := range want {
		if refs[i].String() != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, refs[i], want[i])
		}
	}
}

func TestDefinitionRepository_LoadErrors(t *testing.T) {
	table := newFakeTable()
	repo := newDefinitionRepository(table, "reports", false)
	ctx := context.Background()

	if _, err := repo.Load(ctx, "missing"); !errors.Is(err, reporterr.ErrDefinitionNotFound) {
		t.Errorf("missing item: got %v", err)
	}

	table.put(map[string]types.AttributeValue{
		attrPK:      &types.AttributeValueMemberS{Value: "DEFINITION#broken"},
		attrSK:      &types.AttributeValueMemberS{Value: definitionSK},
		attrPayload: &types.AttributeValueMemberS{Value: "{not json"},
	})
	if _, err := repo.Load(ctx, "broken"); !reporterr.IsValidation(err) {
		t.Errorf("malformed payload: got %v", err)
	}

	if err := repo.Save(ctx, " ", testDefinition("blank")); !reporterr.IsValidation(err) {
		t.Errorf("blank ref: got %v", err)
	}

	table.getErr = errors.New("ProvisionedThroughputExceededException")
	if _, err := repo.Load(ctx, "acme"); err == nil || reporterr.IsValidation(err) {
		t.Errorf("client failure: got %v", err)
	}
}

func TestNewDefinitionRepository_Validation(t *testing.T) {
	ctx := context.Background()

	if _, err := NewDefinitionRepository(ctx, Config{}); err == nil {
		t.Error("expected error without table name")
	}
	if _, err := NewDefinitionRepository(ctx, Config{TableName: "reports", AccessKeyID: "AKIA"}); err == nil {
		t.Error("expected error for partial static credentials")
	}
}
