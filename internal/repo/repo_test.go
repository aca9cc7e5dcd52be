package repo

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dc-purchase-api/internal/constant"
	"dc-purchase-api/internal/dal"
	"dc-purchase-api/internal/idgen"
	mainmodel "dc-purchase-api/internal/model/main"
	ordermodel "dc-purchase-api/internal/model/order"
)

func TestMain(m *testing.M) {
	if err := idgen.InitNode("default", 1); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := dal.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedOrder(t *testing.T, r *OrderRepo, id string, status constant.OrderStatus) *ordermodel.DcPurchaseOrder {
	t.Helper()
	o := &ordermodel.DcPurchaseOrder{
		ID:             id,
		Oui:            42,
		Payer:          "payer-key",
		Escrow:         "escrow-acct",
		UsdRequested:   decimal.RequireFromString("50"),
		Status:         status,
		PartnerUserRef: "dc_42_" + id,
	}
	if _, err := r.Create(context.Background(), o); err != nil {
		t.Fatalf("create: %v", err)
	}
	return o
}

func TestOrderRepo_CreateAndGet(t *testing.T) {
	r := NewOrderRepoWithDB(newTestDB(t))
	ctx := context.Background()
	seedOrder(t, r, "o-1", constant.StatusCreated)

	got, err := r.GetByID(ctx, "o-1")
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v %v", got, err)
	}
	if got.Status != constant.StatusCreated || !got.UsdRequested.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected order %+v", got)
	}
	byRef, err := r.GetByPartnerRef(ctx, "dc_42_o-1")
	if err != nil || byRef == nil || byRef.ID != "o-1" {
		t.Fatalf("GetByPartnerRef: %v %v", byRef, err)
	}
	missing, err := r.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("missing order should be nil, nil; got %v %v", missing, err)
	}
	events, _ := r.ListEvents(ctx, "o-1")
	if len(events) != 1 || events[0].Type != constant.EventStatusChange {
		t.Fatalf("expected one STATUS_CHANGE event, got %+v", events)
	}
}

func TestOrderRepo_UpdateStatus_AllowList(t *testing.T) {
	r := NewOrderRepoWithDB(newTestDB(t))
	ctx := context.Background()
	seedOrder(t, r, "o-2", constant.StatusUsdcVerified)

	_, err := r.UpdateStatus(ctx, "o-2", constant.StatusUsdcVerified, constant.StatusSwapping, map[string]any{
		"maliciousField": "x",
		"swap_tx_sig":    "abc",
		"status":         "complete",
	})
	if err != nil {
		t.Fatalf("UpdateStatus should not fail on unknown columns: %v", err)
	}
	got, _ := r.GetByID(ctx, "o-2")
	if got.SwapTxSig == nil || *got.SwapTxSig != "abc" {
		t.Fatalf("swap_tx_sig not persisted: %+v", got.SwapTxSig)
	}
	if got.Status != constant.StatusSwapping {
		t.Fatalf("status column must not be writable through fields, got %s", got.Status)
	}

	kept, dropped := FilterColumns(map[string]any{"maliciousField": "x", "swap_tx_sig": "abc"})
	if len(kept) != 1 || len(dropped) != 1 || dropped[0] != "maliciousField" {
		t.Fatalf("FilterColumns kept=%v dropped=%v", kept, dropped)
	}
}

func TestOrderRepo_UpdateStatus_Conditional(t *testing.T) {
	r := NewOrderRepoWithDB(newTestDB(t))
	ctx := context.Background()
	seedOrder(t, r, "o-3", constant.StatusSwapping)

	_, err := r.UpdateStatus(ctx, "o-3", constant.StatusUsdcVerified, constant.StatusSwapping, nil)
	if !errors.Is(err, ErrStaleStatus) {
		t.Fatalf("want ErrStaleStatus, got %v", err)
	}
	_, err = r.UpdateStatus(ctx, "ghost", constant.StatusSwapping, constant.StatusMintingDC, nil)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("want ErrOrderNotFound, got %v", err)
	}

	events, _ := r.ListEvents(ctx, "o-3")
	if len(events) != 1 {
		t.Fatalf("rejected updates must not append events, got %d", len(events))
	}
}

func TestOrderRepo_ErrorFieldsClear(t *testing.T) {
	r := NewOrderRepoWithDB(newTestDB(t))
	ctx := context.Background()
	seedOrder(t, r, "o-4", constant.StatusMintingDC)

	if _, err := r.UpdateStatus(ctx, "o-4", constant.StatusMintingDC, constant.StatusMintingDC, map[string]any{
		"error_code": "processing_error", "error_message": "rpc down",
	}); err != nil {
		t.Fatal(err)
	}
	got, _ := r.GetByID(ctx, "o-4")
	if !got.HasError() {
		t.Fatal("error fields not stored")
	}
	if _, err := r.UpdateStatus(ctx, "o-4", constant.StatusMintingDC, constant.StatusMintingDC, map[string]any{
		"error_code": nil, "error_message": nil,
	}); err != nil {
		t.Fatal(err)
	}
	got, _ = r.GetByID(ctx, "o-4")
	if got.HasError() || got.Status != constant.StatusMintingDC {
		t.Fatalf("error not cleared: %+v", got)
	}
}

func TestOrderRepo_ListByStatuses(t *testing.T) {
	r := NewOrderRepoWithDB(newTestDB(t))
	ctx := context.Background()
	seedOrder(t, r, "a", constant.StatusCreated)
	seedOrder(t, r, "b", constant.StatusSwapping)
	seedOrder(t, r, "c", constant.StatusComplete)
	seedOrder(t, r, "d", constant.StatusOnrampStarted)

	list, err := r.ListByStatuses(ctx, constant.NonTerminalStatuses)
	if err != nil {
		t.Fatal(err)
	}
	ids := map[string]bool{}
	for _, o := range list {
		ids[o.ID] = true
	}
	if len(list) != 2 || !ids["b"] || !ids["d"] {
		t.Fatalf("unexpected non-terminal list: %v", ids)
	}
}

func TestOuiRepo_Upsert(t *testing.T) {
	r := NewOuiRepoWithDB(newTestDB(t))
	ctx := context.Background()
	n, err := r.Upsert(ctx, []mainmodel.Oui{{Oui: 42, Payer: "p1", Escrow: "e1"}})
	if err != nil || n != 1 {
		t.Fatalf("upsert: %d %v", n, err)
	}
	if _, err := r.Upsert(ctx, []mainmodel.Oui{{Oui: 42, Payer: "p2", Escrow: "e2", Locked: true}}); err != nil {
		t.Fatal(err)
	}
	got, err := r.GetByOui(ctx, 42)
	if err != nil || got == nil || got.Payer != "p2" || !got.Locked {
		t.Fatalf("upsert did not update: %+v %v", got, err)
	}
	none, err := r.GetByOui(ctx, 7)
	if err != nil || none != nil {
		t.Fatalf("missing oui: %v %v", none, err)
	}
}
