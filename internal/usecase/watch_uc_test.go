//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/last9death/maturmarket/internal/domain"
	"github.com/last9death/maturmarket/internal/domain/model"
	"github.com/last9death/maturmarket/internal/infra/ratelimit"
	"github.com/last9death/maturmarket/internal/usecase"
)

const outOfStockPageHTML = `
<html><body>
  <h1>Куртка зимняя</h1>
  <div class="price"><span class="amount">12 990 ₽</span></div>
  <div>Нет в наличии</div>
</body></html>
`

func TestWatchUseCase_AddListRemove(t *testing.T) {
	ctx := context.Background()
	watches := NewMockWatchRepo()
	users := NewMockUserRepo()
	products := usecase.NewProductUseCase(NewMockFetcher(), NewMockProductCacheRepo(), NewMockLimiter(), testSite(), testLimits(), testLogger())
	uc := usecase.NewWatchUseCase(watches, users, products, testLogger())

	if _, err := uc.Add(ctx, 1, "not a url"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	w, err := uc.Add(ctx, 1, "https://maturmarket.ru/product/jacket")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if w.ID == 0 {
		t.Fatal("watch id was not assigned")
	}

	list, err := uc.List(ctx, 1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != w.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	if err := uc.Remove(ctx, 2, w.ID); !errors.Is(err, domain.ErrWatchNotFound) {
		t.Fatalf("foreign removal: expected ErrWatchNotFound, got %v", err)
	}
	if err := uc.Remove(ctx, 1, w.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	list, _ = uc.List(ctx, 1)
	if len(list) != 0 {
		t.Fatalf("expected an empty list, got %+v", list)
	}
}

func TestWatchUseCase_CheckAll(t *testing.T) {
	ctx := context.Background()
	url := "https://maturmarket.ru/product/jacket"

	// CacheTTL 0 keeps every cycle hitting the "live" page.
	site := testSite()
	site.CacheTTL = 0

	fetcher := NewMockFetcher()
	fetcher.SetHTML(url, productPageHTML)
	users := NewMockUserRepo()
	watches := NewMockWatchRepo()
	products := usecase.NewProductUseCase(fetcher, NewMockProductCacheRepo(), NewMockLimiter(), site, testLimits(), testLogger())
	uc := usecase.NewWatchUseCase(watches, users, products, testLogger())

	owner, err := model.NewUser(500)
	if err != nil {
		t.Fatal(err)
	}
	if err := users.Save(ctx, owner); err != nil {
		t.Fatal(err)
	}
	w, err := uc.Add(ctx, owner.ID, url)
	if err != nil {
		t.Fatal(err)
	}

	// First cycle: the fresh watch has no recorded status yet, so whatever
	// comes back counts as a change.
	pending, err := uc.CheckAll(ctx)
	if err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(pending))
	}
	if pending[0].ChatID != 500 {
		t.Errorf("notification addressed to %d", pending[0].ChatID)
	}
	if pending[0].Product.Availability != model.StatusInStock {
		t.Errorf("unexpected product state %s", pending[0].Product.Availability)
	}
	stored := watches.Get(w.ID)
	if stored.LastStatus != model.StatusInStock {
		t.Errorf("stored status %s", stored.LastStatus)
	}
	if stored.LastPrice == nil || *stored.LastPrice != 12990 {
		t.Errorf("stored price %v", stored.LastPrice)
	}

	if err := uc.MarkNotified(ctx, w.ID, pending[0].Product.Availability); err != nil {
		t.Fatalf("MarkNotified failed: %v", err)
	}
	if got := watches.Get(w.ID).LastNotifiedStatus; got != model.StatusInStock {
		t.Errorf("notified status %s", got)
	}

	// Second cycle: nothing changed, nothing to say.
	pending, err = uc.CheckAll(ctx)
	if err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no notifications, got %d", len(pending))
	}

	// Third cycle: the product ran out.
	fetcher.SetHTML(url, outOfStockPageHTML)
	pending, err = uc.CheckAll(ctx)
	if err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(pending))
	}
	if pending[0].Product.Availability != model.StatusOutOfStock {
		t.Errorf("unexpected product state %s", pending[0].Product.Availability)
	}
	if pending[0].Watch.LastStatus != model.StatusInStock {
		t.Errorf("notification should carry the pre-check state, got %s", pending[0].Watch.LastStatus)
	}
}

func TestWatchUseCase_CheckAllSkipsOrphanedWatches(t *testing.T) {
	ctx := context.Background()
	url := "https://maturmarket.ru/product/jacket"

	fetcher := NewMockFetcher()
	fetcher.SetHTML(url, productPageHTML)
	watches := NewMockWatchRepo()
	products := usecase.NewProductUseCase(fetcher, NewMockProductCacheRepo(), NewMockLimiter(), testSite(), testLimits(), testLogger())
	uc := usecase.NewWatchUseCase(watches, NewMockUserRepo(), products, testLogger())

	// A watch whose owner row is gone must not produce a notification.
	w, err := model.NewWatch(999, url)
	if err != nil {
		t.Fatal(err)
	}
	if err := watches.Add(ctx, w); err != nil {
		t.Fatal(err)
	}

	pending, err := uc.CheckAll(ctx)
	if err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no notifications, got %d", len(pending))
	}
	if fetcher.TotalCalls() != 0 {
		t.Errorf("orphaned watch still hit the site %d times", fetcher.TotalCalls())
	}
}

func TestWatchUseCase_CheckAllKeepsStateOnBadPages(t *testing.T) {
	ctx := context.Background()
	url := "https://maturmarket.ru/product/jacket"

	site := testSite()
	site.CacheTTL = 0

	fetcher := NewMockFetcher()
	fetcher.SetHTML(url, productPageHTML)
	users := NewMockUserRepo()
	watches := NewMockWatchRepo()
	products := usecase.NewProductUseCase(fetcher, NewMockProductCacheRepo(), NewMockLimiter(), site, testLimits(), testLogger())
	uc := usecase.NewWatchUseCase(watches, users, products, testLogger())

	owner, err := model.NewUser(500)
	if err != nil {
		t.Fatal(err)
	}
	if err := users.Save(ctx, owner); err != nil {
		t.Fatal(err)
	}
	w, err := uc.Add(ctx, owner.ID, url)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := uc.CheckAll(ctx); err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if got := watches.Get(w.ID).LastStatus; got != model.StatusInStock {
		t.Fatalf("stored status %s", got)
	}

	// The page starts failing. The watch must keep its last parsed state and
	// stay quiet instead of announcing NOT_FOUND.
	fetcher.SetStatus(url, 404)
	pending, err := uc.CheckAll(ctx)
	if err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no notifications, got %d", len(pending))
	}
	if got := watches.Get(w.ID).LastStatus; got != model.StatusInStock {
		t.Errorf("a failed fetch overwrote the stored status with %s", got)
	}

	// Recovery with a real change notifies once.
	fetcher.SetHTML(url, outOfStockPageHTML)
	pending, err = uc.CheckAll(ctx)
	if err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Product.Availability != model.StatusOutOfStock {
		t.Fatalf("unexpected notifications %+v", pending)
	}
}

func TestWatchUseCase_CheckAllHonorsOwnerBudget(t *testing.T) {
	ctx := context.Background()
	url := "https://maturmarket.ru/product/jacket"

	fetcher := NewMockFetcher()
	fetcher.SetHTML(url, productPageHTML)
	users := NewMockUserRepo()
	watches := NewMockWatchRepo()
	limiter := NewMockLimiter()
	limiter.Denied[ratelimit.UserKey(500)] = true
	products := usecase.NewProductUseCase(fetcher, NewMockProductCacheRepo(), limiter, testSite(), testLimits(), testLogger())
	uc := usecase.NewWatchUseCase(watches, users, products, testLogger())

	owner, err := model.NewUser(500)
	if err != nil {
		t.Fatal(err)
	}
	if err := users.Save(ctx, owner); err != nil {
		t.Fatal(err)
	}
	w, err := uc.Add(ctx, owner.ID, url)
	if err != nil {
		t.Fatal(err)
	}

	pending, err := uc.CheckAll(ctx)
	if err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no notifications, got %d", len(pending))
	}
	if fetcher.TotalCalls() != 0 {
		t.Errorf("rate-limited owner still caused %d fetches", fetcher.TotalCalls())
	}
	if got := watches.Get(w.ID).LastStatus; got != "" {
		t.Errorf("rate-limited check recorded status %s", got)
	}
}
