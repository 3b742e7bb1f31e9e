package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"furniture-orders/internal/apperrors"
	"furniture-orders/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(sqlx.NewDb(db, "postgres")), mock
}

var orderCols = []string{"order_id", "status", "items", "status_history", "status_sla", "version", "created_at", "updated_at"}

func TestCreateOrder_DuplicateIsValidation(t *testing.T) {
	s, mock := setupStore(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	order := &models.Order{
		OrderID:       7,
		Status:        models.StatusNew,
		StatusHistory: []models.StatusHistoryEntry{{Status: models.StatusNew, Timestamp: now}},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.CreateOrder(context.Background(), order)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "duplicate order id", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrder_DecodesJSONColumns(t *testing.T) {
	s, mock := setupStore(t)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(orderCols).AddRow(
		int64(7),
		"manufacturing",
		`[{"product":"p-1","productId":42,"supplierId":"s-1","fabrics":["f1"],"glass":[]}]`,
		`[{"status":"New","timestamp":"2024-01-01T00:00:00Z"},{"status":"manufacturing","timestamp":"2024-01-02T00:00:00Z"}]`,
		`{"New":{"redDays":4}}`,
		int64(2),
		ts,
		ts,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE order_id = $1")).
		WithArgs(7).
		WillReturnRows(rows)

	order, err := s.GetOrder(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, models.StatusManufacturing, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "p-1", order.Items[0].ProductRef)
	assert.Equal(t, int64(42), order.Items[0].ProductID)
	assert.Equal(t, []string{"f1"}, order.Items[0].Selections.Get(models.CategoryFabrics))
	require.Len(t, order.StatusHistory, 2)
	assert.Equal(t, models.StatusManufacturing, order.StatusHistory[1].Status)
	require.NotNil(t, order.StatusSla)
	assert.Equal(t, 4, *order.StatusSla.New.RedDays)
	assert.Nil(t, order.StatusSla.Done)
	assert.Equal(t, int64(2), order.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrder_NullSla(t *testing.T) {
	s, mock := setupStore(t)
	ts := time.Now()

	rows := sqlmock.NewRows(orderCols).
		AddRow(int64(1), "New", `[]`, `[{"status":"New","timestamp":"2024-01-01T00:00:00Z"}]`, nil, int64(1), ts, ts)
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE order_id = $1")).WillReturnRows(rows)

	order, err := s.GetOrder(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, order.StatusSla)
	assert.Empty(t, order.Items)
}

func TestGetOrder_NotFound(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE order_id = $1")).
		WithArgs(999).
		WillReturnRows(sqlmock.NewRows(orderCols))

	_, err := s.GetOrder(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "Order not found", err.Error())
}

func TestUpdateOrder_LastWriteWins(t *testing.T) {
	s, mock := setupStore(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE orders")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(4)))

	order := &models.Order{OrderID: 3, Status: models.StatusDone, Version: 3, UpdatedAt: now}
	require.NoError(t, s.UpdateOrder(context.Background(), order, nil))
	assert.Equal(t, int64(4), order.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrder_VersionMismatchIsConflict(t *testing.T) {
	s, mock := setupStore(t)
	expected := int64(2)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE orders")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM orders WHERE order_id = $1)")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	order := &models.Order{OrderID: 3, Status: models.StatusDone, UpdatedAt: time.Now()}
	err := s.UpdateOrder(context.Background(), order, &expected)

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrder_MissingIsNotFound(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE orders")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM orders")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := s.UpdateOrder(context.Background(), &models.Order{OrderID: 3}, nil)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteOrder(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders WHERE order_id = $1")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders WHERE order_id = $1")).
		WithArgs(6).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.DeleteOrder(context.Background(), 5))

	err := s.DeleteOrder(context.Background(), 6)
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProduct_DuplicateProductID(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := s.CreateProduct(context.Background(), &models.Product{ID: "p-1", ProductID: 42, Name: "Sofa"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "Product ID already exists.", err.Error())
}

func TestGetProductByProductID(t *testing.T) {
	s, mock := setupStore(t)
	ts := time.Now()

	cols := []string{"id", "product_id", "name", "description", "supplier_id", "images", "allowed_options", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE product_id = $1")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("p-1", int64(42), "Sofa", "", "s-1", "", `{"fabrics":["f1","f2"],"marble":["m1"]}`, ts, ts))
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE product_id = $1")).
		WithArgs(43).
		WillReturnRows(sqlmock.NewRows(cols))

	p, err := s.GetProductByProductID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)
	assert.Equal(t, []string{"f1", "f2"}, p.AllowedOptions.Get(models.CategoryFabrics))
	assert.Equal(t, []string{"m1"}, p.AllowedOptions.Get(models.CategoryMarble))
	assert.Empty(t, p.AllowedOptions.Get(models.CategoryGlass))

	_, err = s.GetProductByProductID(context.Background(), 43)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "Product 43 not found", err.Error())
}

func TestCountOptions_ExpandsIDs(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM customization_options WHERE category = $1 AND id IN ($2, $3)")).
		WithArgs("fabrics", "f1", "f2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := s.CountOptions(context.Background(), models.CategoryFabrics, []string{"f1", "f2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.CountOptions(context.Background(), models.CategoryFabrics, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOption_DuplicateName(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO customization_options")).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := s.CreateOption(context.Background(), &models.Option{ID: "o-1", Category: models.CategoryGlass, Name: "Frosted"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetSlaDefaults(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM sla_defaults")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "green_days", "orange_days", "red_days"}).
			AddRow("New", 2, nil, 9).
			AddRow("Done", nil, nil, nil))

	sla, err := s.GetSlaDefaults(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sla.New)
	assert.Equal(t, 2, *sla.New.GreenDays)
	assert.Nil(t, sla.New.OrangeDays)
	assert.Equal(t, 9, *sla.New.RedDays)
	assert.Nil(t, sla.Done, "rows without any value are dropped")
}

func TestSaveSlaDefaults(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sla_defaults")).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sla_defaults")).
		WithArgs("manufacturing", nil, 40, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sla := &models.StatusSla{Manufacturing: &models.SlaThresholds{OrangeDays: models.Days(40)}}
	require.NoError(t, s.SaveSlaDefaults(context.Background(), sla))
	assert.NoError(t, mock.ExpectationsWereMet())
}

var processedCols = []string{"event_id", "event_type", "processed_at"}

func TestProcessedEvents(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM processed_events WHERE event_id = $1")).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows(processedCols))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO processed_events")).
		WithArgs("evt-1", models.EventTypeOrderStatusChanged).
		WillReturnResult(sqlmock.NewResult(0, 1))

	done, err := s.IsEventProcessed(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.False(t, done)
	require.NoError(t, s.MarkEventProcessed(context.Background(), "evt-1", models.EventTypeOrderStatusChanged))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsEventProcessed_Seen(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM processed_events WHERE event_id = $1")).
		WithArgs("evt-2").
		WillReturnRows(sqlmock.NewRows(processedCols).
			AddRow("evt-2", models.EventTypeOrderDeleted, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	done, err := s.IsEventProcessed(context.Background(), "evt-2")
	require.NoError(t, err)
	assert.True(t, done)
	assert.NoError(t, mock.ExpectationsWereMet())
}
