package service

import (
	"testing"

	"readsy_backend/internal/model"
	"readsy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShopItems_Cached(t *testing.T) {
	f := newFixture(t, testNow)
	svc, err := NewShopService(f.shop)
	require.NoError(t, err)
	defer svc.Close()

	items, err := svc.Items()
	require.NoError(t, err)
	assert.Len(t, items, 3)

	_, err = svc.Items()
	require.NoError(t, err)
	assert.Equal(t, 1, f.shop.ListCalls)

	svc.InvalidateItems()
	_, err = svc.Items()
	require.NoError(t, err)
	assert.Equal(t, 2, f.shop.ListCalls)
}

func TestShopPurchase(t *testing.T) {
	f := newFixture(t, testNow)
	svc, err := NewShopService(f.shop)
	require.NoError(t, err)
	defer svc.Close()

	user := f.users.Put(model.User{Username: "reader", Coins: 100})

	res, err := svc.Purchase(user.ID, owlItemID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.CoinsLeft)
	assert.Equal(t, "Night Owl", res.Inventory.ShopItem.Name)

	_, err = svc.Purchase(user.ID, owlItemID)
	assert.ErrorIs(t, err, util.ErrNotEnoughCoins)

	_, err = svc.Purchase(user.ID, frameItemID)
	assert.ErrorIs(t, err, util.ErrPremiumOnly)

	_, err = svc.Purchase(user.ID, 404)
	assert.ErrorIs(t, err, util.ErrShopItemNotFound)

	inv, err := svc.Inventory(user.ID)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, owlItemID, inv[0].ShopItemID)

	stored, _ := f.users.FindByID(user.ID)
	assert.Equal(t, int64(20), stored.Coins)
}

func TestShopPurchase_PremiumUser(t *testing.T) {
	f := newFixture(t, testNow)
	svc, err := NewShopService(f.shop)
	require.NoError(t, err)
	defer svc.Close()

	user := f.users.Put(model.User{Username: "patron", Coins: 500, IsPremium: true})
	res, err := svc.Purchase(user.ID, frameItemID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), res.CoinsLeft)
}
