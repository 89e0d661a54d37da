package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/salesflow/backend/internal/domain/document"
	"github.com/salesflow/backend/internal/domain/order"
	"github.com/salesflow/backend/internal/domain/quote"
	"github.com/salesflow/backend/internal/domain/shared"
)

// setupDocumentTestDB opens an in-memory SQLite database with the full
// document schema. The pool is pinned to one connection because each
// in-memory SQLite connection is its own database.
func setupDocumentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&quote.Quote{}, &quote.Line{},
		&order.Order{}, &order.Line{}, &order.Payment{},
		&document.ChangeEntry{},
	)
	require.NoError(t, err)

	return db
}

// buildTestQuote creates a draft quote with one priced line.
func buildTestQuote(t *testing.T, number string, clientID uuid.UUID) *quote.Quote {
	t.Helper()

	settings, err := document.NewSettings("EUR", decimal.NewFromInt(1), decimal.NewFromFloat(21), false)
	require.NoError(t, err)

	q, err := quote.NewQuote(number, clientID, settings, time.Now(), time.Now().AddDate(0, 0, 30), nil)
	require.NoError(t, err)

	_, err = q.AddLine(nil, document.LineInput{
		Description: "Consulting hours",
		Quantity:    decimal.NewFromInt(2),
		UnitPrice:   decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	return q
}

func TestGormQuoteRepository_SaveAndFindByID(t *testing.T) {
	db := setupDocumentTestDB(t)
	repo := NewGormQuoteRepository(db)
	changeLog := NewGormChangeLogRepository(db)
	ctx := context.Background()

	t.Run("saves quote with lines and change log", func(t *testing.T) {
		clientID := uuid.New()
		q := buildTestQuote(t, "QT20250800011AAA", clientID)

		err := repo.Save(ctx, q)
		require.NoError(t, err)
		assert.Empty(t, q.PendingChanges(), "saved changes should be cleared")

		found, err := repo.FindByID(ctx, q.ID, shared.VisibilityActive)
		require.NoError(t, err)
		assert.Equal(t, q.QuoteNumber, found.QuoteNumber)
		assert.Equal(t, clientID, found.ClientID)
		assert.Equal(t, quote.StatusDraft, found.Status)
		assert.Equal(t, 1, found.GetVersion())
		require.Len(t, found.Lines, 1)
		assert.Equal(t, "Consulting hours", found.Lines[0].Description)
		assert.True(t, found.Lines[0].Quantity.Equal(decimal.NewFromInt(2)))

		entries, err := changeLog.ListForDocument(ctx, document.TypeQuote, q.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, document.ChangeCreated, entries[0].Action)
	})

	t.Run("rejects duplicate quote number", func(t *testing.T) {
		q1 := buildTestQuote(t, "QT20250800022BBB", uuid.New())
		require.NoError(t, repo.Save(ctx, q1))

		q2 := buildTestQuote(t, "QT20250800022BBB", uuid.New())
		err := repo.Save(ctx, q2)
		assert.ErrorIs(t, err, shared.ErrDuplicateNumber)
	})

	t.Run("returns not found for unknown id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New(), shared.VisibilityActive)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormQuoteRepository_FindByNumber(t *testing.T) {
	db := setupDocumentTestDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()

	q := buildTestQuote(t, "QT20250800033CCC", uuid.New())
	require.NoError(t, repo.Save(ctx, q))

	t.Run("finds by number", func(t *testing.T) {
		found, err := repo.FindByNumber(ctx, "QT20250800033CCC", shared.VisibilityActive)
		require.NoError(t, err)
		assert.Equal(t, q.ID, found.ID)
		assert.Len(t, found.Lines, 1)
	})

	t.Run("returns not found for unknown number", func(t *testing.T) {
		_, err := repo.FindByNumber(ctx, "QT20250899990000", shared.VisibilityActive)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormQuoteRepository_Visibility(t *testing.T) {
	db := setupDocumentTestDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()

	q := buildTestQuote(t, "QT20250800044DDD", uuid.New())
	require.NoError(t, repo.Save(ctx, q))
	require.True(t, q.SoftDelete(nil))
	require.NoError(t, repo.SaveWithLock(ctx, q))

	t.Run("active scope hides deleted quotes", func(t *testing.T) {
		_, err := repo.FindByID(ctx, q.ID, shared.VisibilityActive)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("deleted scope shows only deleted quotes", func(t *testing.T) {
		found, err := repo.FindByID(ctx, q.ID, shared.VisibilityDeleted)
		require.NoError(t, err)
		assert.True(t, found.IsDeleted)
		assert.NotNil(t, found.DeletedAt)
	})

	t.Run("all scope shows everything", func(t *testing.T) {
		found, err := repo.FindByID(ctx, q.ID, shared.VisibilityAll)
		require.NoError(t, err)
		assert.Equal(t, q.ID, found.ID)
	})
}

func TestGormQuoteRepository_FindAll(t *testing.T) {
	db := setupDocumentTestDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()

	clientID := uuid.New()
	numbers := []string{"QT20250800101AAA", "QT20250800102BBB", "QT20250800103CCC"}
	for _, number := range numbers {
		q := buildTestQuote(t, number, clientID)
		require.NoError(t, repo.Save(ctx, q))
	}
	other := buildTestQuote(t, "QT20250800104DDD", uuid.New())
	require.NoError(t, repo.Save(ctx, other))

	deleted := buildTestQuote(t, "QT20250800105EEE", clientID)
	require.NoError(t, repo.Save(ctx, deleted))
	require.True(t, deleted.SoftDelete(nil))
	require.NoError(t, repo.SaveWithLock(ctx, deleted))

	t.Run("paginates active quotes", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.PageSize = 2

		page, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(4), page.Total, "deleted quote should not be counted")
		assert.Len(t, page.Items, 2)
		assert.Equal(t, 2, page.TotalPages)
		require.NotEmpty(t, page.Items[0].Lines, "list items need lines for totals")
	})

	t.Run("filters by client", func(t *testing.T) {
		page, err := repo.FindByClient(ctx, clientID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
	})

	t.Run("filters by status", func(t *testing.T) {
		page, err := repo.FindByStatus(ctx, quote.StatusDraft, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(4), page.Total)

		page, err = repo.FindByStatus(ctx, quote.StatusSent, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Zero(t, page.Total)
	})

	t.Run("deleted visibility lists only deleted quotes", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Visibility = shared.VisibilityDeleted

		page, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Equal(t, int64(1), page.Total)
		assert.Equal(t, deleted.ID, page.Items[0].ID)
	})

	t.Run("filters map narrows by status", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["client_id"] = clientID
		filter.Filters["status"] = string(quote.StatusDraft)

		page, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
	})
}

func TestGormQuoteRepository_SaveWithLock(t *testing.T) {
	db := setupDocumentTestDB(t)
	repo := NewGormQuoteRepository(db)
	changeLog := NewGormChangeLogRepository(db)
	ctx := context.Background()

	t.Run("persists transition and increments version", func(t *testing.T) {
		q := buildTestQuote(t, "QT20250800201AAA", uuid.New())
		require.NoError(t, repo.Save(ctx, q))

		require.NoError(t, q.Send(nil))
		require.NoError(t, repo.SaveWithLock(ctx, q))
		assert.Equal(t, 2, q.GetVersion())
		assert.Empty(t, q.PendingChanges())

		found, err := repo.FindByID(ctx, q.ID, shared.VisibilityActive)
		require.NoError(t, err)
		assert.Equal(t, quote.StatusSent, found.Status)
		assert.Equal(t, 2, found.GetVersion())
		assert.NotNil(t, found.SentAt)

		entries, err := changeLog.ListForDocument(ctx, document.TypeQuote, q.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, document.ChangeSent, entries[1].Action)
	})

	t.Run("stale version loses the race", func(t *testing.T) {
		q := buildTestQuote(t, "QT20250800202BBB", uuid.New())
		require.NoError(t, repo.Save(ctx, q))

		first, err := repo.FindByID(ctx, q.ID, shared.VisibilityActive)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, q.ID, shared.VisibilityActive)
		require.NoError(t, err)

		require.NoError(t, first.Send(nil))
		require.NoError(t, repo.SaveWithLock(ctx, first))

		require.NoError(t, second.MarkPending(nil))
		err = repo.SaveWithLock(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 1, second.GetVersion(), "failed save must leave the version alone")

		found, err := repo.FindByID(ctx, q.ID, shared.VisibilityActive)
		require.NoError(t, err)
		assert.Equal(t, quote.StatusSent, found.Status, "loser must not overwrite the winner")
	})

	t.Run("syncs removed and added lines", func(t *testing.T) {
		q := buildTestQuote(t, "QT20250800203CCC", uuid.New())
		_, err := q.AddLine(nil, document.LineInput{
			Description: "Second line",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(50),
		})
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, q))

		require.NoError(t, q.RemoveLine(nil, 1))
		_, err = q.AddLine(nil, document.LineInput{
			Description: "Replacement line",
			Quantity:    decimal.NewFromInt(3),
			UnitPrice:   decimal.NewFromInt(25),
		})
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithLock(ctx, q))

		found, err := repo.FindByID(ctx, q.ID, shared.VisibilityActive)
		require.NoError(t, err)
		require.Len(t, found.Lines, 2)

		descriptions := []string{found.Lines[0].Description, found.Lines[1].Description}
		assert.Contains(t, descriptions, "Second line")
		assert.Contains(t, descriptions, "Replacement line")
		assert.NotContains(t, descriptions, "Consulting hours")
	})
}

func TestGormQuoteRepository_SaveRevision(t *testing.T) {
	db := setupDocumentTestDB(t)
	repo := NewGormQuoteRepository(db)
	changeLog := NewGormChangeLogRepository(db)
	ctx := context.Background()

	q := buildTestQuote(t, "QT20250800301AAA", uuid.New())
	require.NoError(t, repo.Save(ctx, q))
	require.NoError(t, q.Send(nil))
	require.NoError(t, repo.SaveWithLock(ctx, q))

	rev, err := q.CreateRevision("QT20250800302BBB", nil)
	require.NoError(t, err)

	require.NoError(t, repo.SaveRevision(ctx, q, rev))
	assert.Empty(t, q.PendingChanges())
	assert.Empty(t, rev.PendingChanges())

	t.Run("revision row carries copied lines", func(t *testing.T) {
		found, err := repo.FindByID(ctx, rev.ID, shared.VisibilityActive)
		require.NoError(t, err)
		assert.Equal(t, 2, found.Revision)
		require.NotNil(t, found.ParentQuoteID)
		assert.Equal(t, q.ID, *found.ParentQuoteID)
		assert.Equal(t, quote.StatusDraft, found.Status)
		require.Len(t, found.Lines, 1)
		assert.Equal(t, "Consulting hours", found.Lines[0].Description)
	})

	t.Run("original content stays untouched", func(t *testing.T) {
		found, err := repo.FindByID(ctx, q.ID, shared.VisibilityActive)
		require.NoError(t, err)
		assert.Equal(t, quote.StatusSent, found.Status)
		assert.Equal(t, 2, found.GetVersion())
		assert.Equal(t, 1, found.Revision)
	})

	t.Run("both change logs record the revisioning", func(t *testing.T) {
		entries, err := changeLog.ListForDocument(ctx, document.TypeQuote, q.ID)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, document.ChangeRevisionCreated, entries[2].Action)

		entries, err = changeLog.ListForDocument(ctx, document.TypeQuote, rev.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, document.ChangeCreated, entries[0].Action)
	})

	t.Run("revisions list in order", func(t *testing.T) {
		revisions, err := repo.FindRevisions(ctx, q.ID)
		require.NoError(t, err)
		require.Len(t, revisions, 1)
		assert.Equal(t, rev.ID, revisions[0].ID)
	})
}

func TestGormQuoteRepository_SaveConversion(t *testing.T) {
	db := setupDocumentTestDB(t)
	repo := NewGormQuoteRepository(db)
	orders := NewGormOrderRepository(db)
	ctx := context.Background()

	acceptedQuote := func(t *testing.T, number string) *quote.Quote {
		q := buildTestQuote(t, number, uuid.New())
		require.NoError(t, repo.Save(ctx, q))
		require.NoError(t, q.Send(nil))
		require.NoError(t, q.Accept(nil))
		require.NoError(t, repo.SaveWithLock(ctx, q))
		return q
	}

	t.Run("persists quote and order atomically", func(t *testing.T) {
		q := acceptedQuote(t, "QT20250800401AAA")

		o, err := q.ConvertToOrder("ORD20250800401AAA", nil)
		require.NoError(t, err)
		require.NoError(t, repo.SaveConversion(ctx, q, o))

		foundQuote, err := repo.FindByID(ctx, q.ID, shared.VisibilityActive)
		require.NoError(t, err)
		assert.Equal(t, quote.StatusConverted, foundQuote.Status)
		require.NotNil(t, foundQuote.ConvertedToOrderID)
		assert.Equal(t, o.ID, *foundQuote.ConvertedToOrderID)

		foundOrder, err := orders.FindByID(ctx, o.ID, shared.VisibilityActive)
		require.NoError(t, err)
		assert.Equal(t, "ORD20250800401AAA", foundOrder.OrderNumber)
		require.NotNil(t, foundOrder.QuoteID)
		assert.Equal(t, q.ID, *foundOrder.QuoteID)
		require.Len(t, foundOrder.Lines, 1)
		assert.Equal(t, "Consulting hours", foundOrder.Lines[0].Description)
	})

	t.Run("lost race writes nothing", func(t *testing.T) {
		q := acceptedQuote(t, "QT20250800402BBB")

		o, err := q.ConvertToOrder("ORD20250800402BBB", nil)
		require.NoError(t, err)

		// Another writer bumps the version between read and save.
		require.NoError(t, db.Model(&quote.Quote{}).
			Where("id = ?", q.ID).
			Update("version", q.GetVersion()+1).Error)

		err = repo.SaveConversion(ctx, q, o)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		var orderCount int64
		require.NoError(t, db.Model(&order.Order{}).
			Where("order_number = ?", "ORD20250800402BBB").
			Count(&orderCount).Error)
		assert.Zero(t, orderCount, "conflicted conversion must not leave an order behind")
	})
}

func TestGormQuoteRepository_HardDelete(t *testing.T) {
	db := setupDocumentTestDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()

	t.Run("removes quote with lines and change log", func(t *testing.T) {
		q := buildTestQuote(t, "QT20250800501AAA", uuid.New())
		require.NoError(t, repo.Save(ctx, q))

		require.NoError(t, repo.HardDelete(ctx, q.ID))

		_, err := repo.FindByID(ctx, q.ID, shared.VisibilityAll)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		var lineCount int64
		require.NoError(t, db.Model(&quote.Line{}).
			Where("document_id = ?", q.ID).
			Count(&lineCount).Error)
		assert.Zero(t, lineCount)

		var changeCount int64
		require.NoError(t, db.Model(&document.ChangeEntry{}).
			Where("document_id = ?", q.ID).
			Count(&changeCount).Error)
		assert.Zero(t, changeCount)
	})

	t.Run("reports not found for missing quote", func(t *testing.T) {
		err := repo.HardDelete(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormQuoteRepository_Counts(t *testing.T) {
	db := setupDocumentTestDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()

	q1 := buildTestQuote(t, "QT20250800601AAA", uuid.New())
	require.NoError(t, repo.Save(ctx, q1))
	q2 := buildTestQuote(t, "QT20250800602BBB", uuid.New())
	require.NoError(t, repo.Save(ctx, q2))
	require.True(t, q2.SoftDelete(nil))
	require.NoError(t, repo.SaveWithLock(ctx, q2))

	t.Run("count by status skips deleted quotes", func(t *testing.T) {
		count, err := repo.CountByStatus(ctx, quote.StatusDraft)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("count by prefix includes deleted quotes", func(t *testing.T) {
		count, err := repo.CountByNumberPrefix(ctx, "QT202508")
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("exists by number sees deleted quotes", func(t *testing.T) {
		exists, err := repo.ExistsByNumber(ctx, "QT20250800602BBB")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByNumber(ctx, "QT20250899999ZZZ")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestGormQuoteRepository_FindExpiring(t *testing.T) {
	db := setupDocumentTestDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()

	makeQuote := func(t *testing.T, number string, validUntil time.Time) *quote.Quote {
		settings, err := document.NewSettings("EUR", decimal.NewFromInt(1), decimal.NewFromFloat(21), false)
		require.NoError(t, err)
		q, err := quote.NewQuote(number, uuid.New(), settings, validUntil.AddDate(0, 0, -30), validUntil, nil)
		require.NoError(t, err)
		_, err = q.AddLine(nil, document.LineInput{Description: "Line", UnitPrice: decimal.NewFromInt(10)})
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, q))
		return q
	}

	now := time.Now()
	due := makeQuote(t, "QT20250800701AAA", now.Add(-time.Hour))
	makeQuote(t, "QT20250800702BBB", now.AddDate(0, 0, 14))

	rejected := makeQuote(t, "QT20250800703CCC", now.Add(-time.Hour))
	require.NoError(t, rejected.Send(nil))
	require.NoError(t, rejected.Reject(nil, "too expensive"))
	require.NoError(t, repo.SaveWithLock(ctx, rejected))

	page, err := repo.FindExpiring(ctx, now, shared.DefaultFilter())
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, due.ID, page.Items[0].ID)
}

// newMockQuoteRepository creates a GormQuoteRepository against a mocked
// Postgres connection for asserting the exact SQL shape.
func newMockQuoteRepository(t *testing.T) (*GormQuoteRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormQuoteRepository(gormDB), mock, mockDB
}

func TestGormQuoteRepository_SaveWithLockSQL(t *testing.T) {
	t.Run("updates through a single guarded statement", func(t *testing.T) {
		repo, mock, mockDB := newMockQuoteRepository(t)
		defer mockDB.Close()

		q := buildTestQuote(t, "QT20250800801AAA", uuid.New())
		q.Lines = nil
		q.ClearPendingChanges()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "quotes" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM "quote_lines" WHERE document_id = \$1`).
			WithArgs(q.ID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.SaveWithLock(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, 2, q.GetVersion())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero affected rows means concurrency conflict", func(t *testing.T) {
		repo, mock, mockDB := newMockQuoteRepository(t)
		defer mockDB.Close()

		q := buildTestQuote(t, "QT20250800802BBB", uuid.New())
		q.Lines = nil
		q.ClearPendingChanges()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "quotes" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.SaveWithLock(context.Background(), q)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 1, q.GetVersion())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
