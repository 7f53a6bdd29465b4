package product

import (
	"context"
	"testing"
	"time"

	"storelinker-service/internal/domain/auth"
	"storelinker-service/internal/domain/product"
	xerrors "storelinker-service/internal/pkg/errors"
	"storelinker-service/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*ProductService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewProductService(store.Products(), store.Users(), zap.NewNop()), store
}

func seedVendor(t *testing.T, store *memory.Store, email, storeName string) *auth.Identity {
	t.Helper()
	u := &auth.User{
		Email:     email,
		UserType:  auth.UserTypeVendor,
		Role:      auth.RoleVendor,
		StoreName: storeName,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return &auth.Identity{UserID: u.ID, Email: email, UserType: u.UserType, Role: u.Role, StoreName: storeName, User: u}
}

func TestCreateValidatesPricing(t *testing.T) {
	svc, store := newTestService(t)
	vendor := seedVendor(t, store, "v@x.com", "V Shop")

	_, err := svc.Create(context.Background(), vendor, &product.CreateProductRequest{Name: "Mug", Price: 0, Stock: -1})
	var verr *xerrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "price")
	assert.Contains(t, verr.Fields, "stock")

	p, err := svc.Create(context.Background(), vendor, &product.CreateProductRequest{Name: "Mug", Price: 9.5, Stock: 0})
	require.NoError(t, err)
	assert.Equal(t, vendor.UserID, p.VendorID)
	assert.Equal(t, "V Shop", p.StoreName)
	assert.True(t, p.IsActive)
}

func TestOwnershipIsEnforced(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	owner := seedVendor(t, store, "a@x.com", "A")
	other := seedVendor(t, store, "b@x.com", "B")
	admin := &auth.Identity{UserID: primitive.NewObjectID(), Role: auth.RoleAdmin}

	p, err := svc.Create(ctx, owner, &product.CreateProductRequest{Name: "Lamp", Price: 20, Stock: 2})
	require.NoError(t, err)

	price := 25.0
	_, err = svc.Update(ctx, other, p.ID.Hex(), &product.UpdateProductRequest{Price: &price})
	assert.ErrorIs(t, err, xerrors.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, other, p.ID.Hex()), xerrors.ErrForbidden)

	updated, err := svc.Update(ctx, owner, p.ID.Hex(), &product.UpdateProductRequest{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 25.0, updated.Price)

	require.NoError(t, svc.Delete(ctx, admin, p.ID.Hex()))
}

func TestUpdateRejectsInvalidPrice(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	owner := seedVendor(t, store, "a@x.com", "A")

	p, err := svc.Create(ctx, owner, &product.CreateProductRequest{Name: "Lamp", Price: 20, Stock: 2})
	require.NoError(t, err)

	zero := 0.0
	_, err = svc.Update(ctx, owner, p.ID.Hex(), &product.UpdateProductRequest{Price: &zero})
	assert.ErrorIs(t, err, xerrors.ErrValidation)

	got, err := svc.Get(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Price)
}

func TestSoftDeleteHidesFromCatalog(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	owner := seedVendor(t, store, "a@x.com", "A")

	p, err := svc.Create(ctx, owner, &product.CreateProductRequest{Name: "Lamp", Price: 20, Category: "home"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, owner, p.ID.Hex()))

	_, err = svc.Get(ctx, p.ID.Hex())
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	list, err := svc.List(ctx, product.ListProductsQuery{Category: "home"})
	require.NoError(t, err)
	assert.Empty(t, list)

	mine, err := svc.VendorProducts(ctx, owner)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.False(t, mine[0].IsActive)
}

func TestListFiltersByVendor(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	a := seedVendor(t, store, "a@x.com", "A")
	b := seedVendor(t, store, "b@x.com", "B")

	_, err := svc.Create(ctx, a, &product.CreateProductRequest{Name: "One", Price: 1})
	require.NoError(t, err)
	_, err = svc.Create(ctx, b, &product.CreateProductRequest{Name: "Two", Price: 2})
	require.NoError(t, err)

	list, err := svc.List(ctx, product.ListProductsQuery{VendorID: b.UserID.Hex()})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Two", list[0].Name)

	_, err = svc.List(ctx, product.ListProductsQuery{VendorID: "nope"})
	assert.ErrorIs(t, err, xerrors.ErrValidation)
}

func TestStores(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	a := seedVendor(t, store, "a@x.com", "A Store")
	seedVendor(t, store, "nostore@x.com", "")

	customer := &auth.User{Email: "c@x.com", UserType: auth.UserTypeCustomer, IsActive: true}
	require.NoError(t, store.Users().Create(ctx, customer))

	stores, err := svc.ListStores(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "A Store", stores[0].StoreName)

	_, err = svc.Create(ctx, a, &product.CreateProductRequest{Name: "One", Price: 1})
	require.NoError(t, err)

	st, items, err := svc.StoreProducts(ctx, a.UserID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "A Store", st.StoreName)
	assert.Len(t, items, 1)

	_, _, err = svc.StoreProducts(ctx, customer.ID.Hex())
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}
