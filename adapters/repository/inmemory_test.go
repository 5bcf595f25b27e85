package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type testEntity struct {
	id   string
	name string
}

func (e *testEntity) ID() string { return e.id }

type orderView struct {
	OrderID   string
	Status    string
	Amount    int
	CreatedAt time.Time
}

func (v *orderView) ID() string { return v.OrderID }

func (v *orderView) Match(criteria Criteria) bool {
	for key, want := range criteria {
		var value interface{}
		switch key {
		case "order_id":
			value = v.OrderID
		case "status":
			value = v.Status
		case "amount":
			value = v.Amount
		default:
			return false
		}
		if fmt.Sprintf("%v", value) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

func (v *orderView) SortValue(field string) interface{} {
	switch field {
	case "amount":
		return v.Amount
	case "created_at":
		return v.CreatedAt
	case "status":
		return v.Status
	}
	return v.OrderID
}

func TestInMemoryRepository_CRUD(t *testing.T) {
	repo := NewInMemoryRepository[*testEntity]()
	ctx := context.Background()

	entity := &testEntity{id: "e1", name: "first"}
	if err := repo.Save(ctx, entity); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	found, err := repo.FindByID(ctx, "e1")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.name != "first" {
		t.Errorf("Unexpected entity: %+v", found)
	}

	// Save перезаписывает
	if err := repo.Save(ctx, &testEntity{id: "e1", name: "updated"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	found, _ = repo.FindByID(ctx, "e1")
	if found.name != "updated" {
		t.Errorf("Expected updated entity, got %+v", found)
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 entity, got %d", len(all))
	}

	if err := repo.Delete(ctx, "e1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.FindByID(ctx, "e1"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("Expected ErrEntityNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "e1"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("Expected ErrEntityNotFound on double delete, got %v", err)
	}
}

func TestInMemoryRepository_EmptyID(t *testing.T) {
	repo := NewInMemoryRepository[*testEntity]()
	if err := repo.Save(context.Background(), &testEntity{id: ""}); err == nil {
		t.Error("Expected error for empty entity ID")
	}
}

func seedOrderViews(t *testing.T, repo *InMemoryReadRepository[*orderView]) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	views := []*orderView{
		{OrderID: "o1", Status: "paid", Amount: 300, CreatedAt: base},
		{OrderID: "o2", Status: "pending", Amount: 100, CreatedAt: base.Add(time.Minute)},
		{OrderID: "o3", Status: "paid", Amount: 200, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, view := range views {
		if err := repo.Save(ctx, view); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
}

func TestInMemoryReadRepository_FindByCriteria(t *testing.T) {
	repo := NewInMemoryReadRepository[*orderView]()
	seedOrderViews(t, repo)
	ctx := context.Background()

	page, err := repo.FindByCriteria(ctx, Criteria{"status": "paid"}, nil, Pagination{})
	if err != nil {
		t.Fatalf("FindByCriteria failed: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("Expected total 2, got %d", page.Total)
	}

	// Пустой фильтр возвращает все
	page, err = repo.FindByCriteria(ctx, nil, nil, Pagination{})
	if err != nil {
		t.Fatalf("FindByCriteria failed: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("Expected total 3, got %d", page.Total)
	}
}

func TestInMemoryReadRepository_Sort(t *testing.T) {
	repo := NewInMemoryReadRepository[*orderView]()
	seedOrderViews(t, repo)
	ctx := context.Background()

	asc, err := repo.FindByCriteria(ctx, nil, &Sort{Field: "amount", Order: SortAsc}, Pagination{})
	if err != nil {
		t.Fatalf("FindByCriteria failed: %v", err)
	}
	for i, want := range []int{100, 200, 300} {
		if asc.Items[i].Amount != want {
			t.Errorf("Position %d: expected amount %d, got %d", i, want, asc.Items[i].Amount)
		}
	}

	desc, err := repo.FindByCriteria(ctx, nil, &Sort{Field: "amount", Order: SortDesc}, Pagination{})
	if err != nil {
		t.Fatalf("FindByCriteria failed: %v", err)
	}
	for i, want := range []int{300, 200, 100} {
		if desc.Items[i].Amount != want {
			t.Errorf("Position %d: expected amount %d, got %d", i, want, desc.Items[i].Amount)
		}
	}

	byTime, err := repo.FindByCriteria(ctx, nil, &Sort{Field: "created_at", Order: SortAsc}, Pagination{})
	if err != nil {
		t.Fatalf("FindByCriteria failed: %v", err)
	}
	if byTime.Items[0].OrderID != "o1" || byTime.Items[2].OrderID != "o3" {
		t.Errorf("Unexpected time ordering: %v", byTime.Items)
	}
}

func TestInMemoryReadRepository_Pagination(t *testing.T) {
	repo := NewInMemoryReadRepository[*orderView]()
	seedOrderViews(t, repo)
	ctx := context.Background()

	sort := &Sort{Field: "amount", Order: SortAsc}

	page1, err := repo.FindByCriteria(ctx, nil, sort, Pagination{Page: 1, PerPage: 2})
	if err != nil {
		t.Fatalf("FindByCriteria failed: %v", err)
	}
	if len(page1.Items) != 2 || page1.Total != 3 {
		t.Errorf("Unexpected first page: %d items, total %d", len(page1.Items), page1.Total)
	}

	page2, err := repo.FindByCriteria(ctx, nil, sort, Pagination{Page: 2, PerPage: 2})
	if err != nil {
		t.Fatalf("FindByCriteria failed: %v", err)
	}
	if len(page2.Items) != 1 || page2.Items[0].Amount != 300 {
		t.Errorf("Unexpected second page: %v", page2.Items)
	}

	page3, err := repo.FindByCriteria(ctx, nil, sort, Pagination{Page: 3, PerPage: 2})
	if err != nil {
		t.Fatalf("FindByCriteria failed: %v", err)
	}
	if len(page3.Items) != 0 {
		t.Errorf("Expected empty page, got %d items", len(page3.Items))
	}
}

func TestPagination_Normalize(t *testing.T) {
	p := Pagination{}.Normalize()
	if p.Page != 1 || p.PerPage != DefaultPerPage {
		t.Errorf("Unexpected defaults: %+v", p)
	}

	p = Pagination{Page: -1, PerPage: -5}.Normalize()
	if p.Page != 1 || p.PerPage != DefaultPerPage {
		t.Errorf("Unexpected normalization: %+v", p)
	}

	p = Pagination{Page: 2, PerPage: 10}.Normalize()
	if p.Page != 2 || p.PerPage != 10 {
		t.Errorf("Valid values must not change: %+v", p)
	}
}
