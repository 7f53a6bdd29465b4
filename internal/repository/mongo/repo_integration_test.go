package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"storelinker-service/internal/domain/auth"
	"storelinker-service/internal/domain/product"
	xerrors "storelinker-service/internal/pkg/errors"
	"storelinker-service/internal/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// openTestDB connects to MONGO_TEST_URI and returns a throwaway database.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := Connect(ctx, uri)
	if err != nil {
		t.Skipf("mongo unavailable: %v", err)
	}

	db := NewDB(client, fmt.Sprintf("storelinker_test_%d", time.Now().UnixNano()))
	require.NoError(t, db.EnsureIndexes(ctx))

	t.Cleanup(func() {
		_ = db.db.Drop(context.Background())
		_ = db.Disconnect(context.Background())
	})
	return db
}

func TestUserRepositoryLookups(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := db.Users()

	u := &auth.User{Email: "vendor@shop.com", UserType: auth.UserTypeVendor, Role: auth.RoleVendor, StoreName: "V Shop", IsActive: true}
	require.NoError(t, users.Create(ctx, u))
	assert.ErrorIs(t, users.Create(ctx, &auth.User{Email: "vendor@shop.com"}), xerrors.ErrDuplicateAccount)

	got, err := users.FindByEmailAndType(ctx, "vendor@shop.com", auth.UserTypeVendor)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = users.FindByEmailAndType(ctx, "vendor@shop.com", auth.UserTypeCustomer)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	got, err = users.FindByEmailInsensitive(ctx, "VENDOR@Shop.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// Regex metacharacters in the input are literal.
	_, err = users.FindByEmailInsensitive(ctx, "vendor@shop.co.")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	matches, err := users.FindByEmailPrefix(ctx, "vend", 2)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	vendors, err := users.ListVendors(ctx)
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	assert.Empty(t, vendors[0].Password)
}

func TestUpdateProfileDropsStoreFieldsForCustomers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := db.Users()

	u := &auth.User{Email: "c@x.com", UserType: auth.UserTypeCustomer, StoreName: "legacy", IsActive: true}
	require.NoError(t, users.Create(ctx, u))

	u.FirstName = "Cee"
	u.StoreName = "should not persist"
	require.NoError(t, users.UpdateProfile(ctx, u))

	got, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cee", got.FirstName)
	assert.Empty(t, got.StoreName)
}

func TestLedgerAgainstMongo(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	ledger := session.NewLedger(db.Users(), db.Sessions(), nil, zap.NewNop())
	u := &auth.User{Email: "l@x.com", UserType: auth.UserTypeCustomer, IsActive: true}
	require.NoError(t, db.Users().Create(ctx, u))

	rec, err := ledger.RecordLogin(ctx, u, session.LoginEvent{Device: "Firefox", Success: true})
	require.NoError(t, err)
	_, err = ledger.RecordLogin(ctx, u, session.LoginEvent{Device: "Firefox", Success: true, SessionID: rec.SessionID})
	require.NoError(t, err)

	rows, err := db.Sessions().FindByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	ended, err := ledger.EndSession(ctx, u, rec.SessionID, auth.LogoutManual)
	require.NoError(t, err)
	assert.True(t, ended)

	active, err := db.Sessions().FindActiveByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, db.Sessions().Upsert(ctx, &auth.UserSession{SessionID: "orphan", UserID: u.ID, StartTime: time.Now().UTC(), LastActivity: time.Now().UTC()}))
	report, err := ledger.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SessionsAdded)

	stored, err := db.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, session.HasActiveEntry(stored.LoginHistory, "orphan"))
}

func TestProductRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	products := db.Products()

	p := &product.Product{Name: "Mug", Price: 9.5, Stock: 3, Category: "kitchen", IsActive: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, products.Create(ctx, p))

	p.IsActive = false
	require.NoError(t, products.Update(ctx, p))

	list, err := products.Find(ctx, product.Filter{Category: "kitchen"})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = products.Find(ctx, product.Filter{Category: "kitchen", IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSaveLoginHistoryChecksVersion(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := db.Users()

	u := &auth.User{Email: "h@x.com", UserType: auth.UserTypeCustomer, IsActive: true}
	require.NoError(t, users.Create(ctx, u))

	now := time.Now().UTC().Truncate(time.Millisecond)
	entry := auth.LoginEntry{Timestamp: now, Success: true, SessionID: "s1", Active: true, LastUpdated: now}
	require.NoError(t, users.SaveLoginHistory(ctx, u.ID, 0, []auth.LoginEntry{entry}))

	err := users.SaveLoginHistory(ctx, u.ID, 0, nil)
	assert.ErrorIs(t, err, xerrors.ErrWriteConflict)

	got, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.HistoryVersion)
	require.Len(t, got.LoginHistory, 1)

	// Ended entries are not touched.
	entry.Active = false
	require.NoError(t, users.SaveLoginHistory(ctx, u.ID, 1, []auth.LoginEntry{entry}))
	require.NoError(t, users.TouchLoginEntry(ctx, u.ID, "s1", now.Add(time.Hour)))

	got, err = users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.LoginHistory[0].LastUpdated.Equal(now))
}
