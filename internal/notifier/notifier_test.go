package notifier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mdemirtas/tgtg-notifier/internal/models"
	"github.com/mdemirtas/tgtg-notifier/internal/store/sqlite"
	"github.com/mdemirtas/tgtg-notifier/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init(false)
	os.Exit(m.Run())
}

type fakeSource struct {
	offers []models.OfferSnapshot
	err    error
}

func (f *fakeSource) ListFavoriteOffers(ctx context.Context) ([]models.OfferSnapshot, error) {
	return f.offers, f.err
}

type fakeSender struct {
	sent    []string
	failAll bool
}

func (f *fakeSender) Send(text string) error {
	if f.failAll {
		return errors.New("telegram unreachable")
	}
	f.sent = append(f.sent, text)
	return nil
}

func pizzaPalace(start, end time.Time) models.OfferSnapshot {
	return models.OfferSnapshot{
		ItemID:         "10",
		DisplayName:    "Surprise Bag",
		ItemsAvailable: 2,
		Price:          models.Price{MinorUnits: 499, Decimals: 2, Code: "EUR"},
		OriginalPrice:  models.Price{MinorUnits: 1500, Decimals: 2, Code: "EUR"},
		PickupStart:    start,
		PickupEnd:      end,
		Store: models.StoreInfo{
			ID:          "1",
			Name:        "Pizza Palace",
			AddressLine: "Hauptstrasse 1",
			City:        "Berlin",
		},
	}
}

func newTestNotifier(t *testing.T, source FavoritesSource, sender Sender) *Notifier {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "offers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(source, sender, st, time.UTC)
}

func TestEmptyFavoritesIsNoOp(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(t, &fakeSource{}, sender)

	result, err := n.RunCycle(context.Background(), false)
	require.NoError(t, err)

	assert.Zero(t, result.Offers)
	assert.Zero(t, result.Sent)
	assert.Empty(t, sender.sent)
}

func TestUnavailableOffersAreSkipped(t *testing.T) {
	start := time.Date(2025, 8, 12, 18, 0, 0, 0, time.UTC)
	soldOut := pizzaPalace(start, start.Add(2*time.Hour))
	soldOut.ItemsAvailable = 0

	sender := &fakeSender{}
	n := newTestNotifier(t, &fakeSource{offers: []models.OfferSnapshot{soldOut}}, sender)

	result, err := n.RunCycle(context.Background(), false)
	require.NoError(t, err)

	assert.Zero(t, result.Offers)
	assert.Empty(t, sender.sent)
}

func TestThreeCycleScenario(t *testing.T) {
	start := time.Date(2025, 8, 12, 18, 0, 0, 0, time.UTC)
	source := &fakeSource{offers: []models.OfferSnapshot{pizzaPalace(start, start.Add(2*time.Hour))}}
	sender := &fakeSender{}
	n := newTestNotifier(t, source, sender)

	// First cycle: one notification, key recorded.
	result, err := n.RunCycle(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Pizza Palace")
	assert.Contains(t, sender.sent[0], "Surprise Bag")

	// Second cycle, identical snapshot: duplicate suppressed.
	result, err = n.RunCycle(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Offers)
	assert.Zero(t, result.NewOffers)
	assert.Len(t, sender.sent, 1)

	// Third cycle, pickup window moved: new offer, new notification.
	shifted := start.Add(2 * time.Hour)
	source.offers = []models.OfferSnapshot{pizzaPalace(shifted, shifted.Add(2*time.Hour))}
	result, err = n.RunCycle(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Len(t, sender.sent, 2)
}

func TestAtLeastOnceOnSendFailure(t *testing.T) {
	start := time.Date(2025, 8, 12, 18, 0, 0, 0, time.UTC)
	source := &fakeSource{offers: []models.OfferSnapshot{pizzaPalace(start, start.Add(2*time.Hour))}}
	sender := &fakeSender{failAll: true}
	n := newTestNotifier(t, source, sender)

	result, err := n.RunCycle(context.Background(), false)
	require.NoError(t, err, "per-offer send failure does not abort the cycle")
	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, result.Sent)

	// The failed offer was not recorded, so the next cycle retries it.
	sender.failAll = false
	result, err = n.RunCycle(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewOffers)
	assert.Equal(t, 1, result.Sent)
	assert.Len(t, sender.sent, 1)
}

func TestFetchFailureAbortsCycle(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(t, &fakeSource{err: errors.New("connection refused")}, sender)

	_, err := n.RunCycle(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch favorites")
	assert.Empty(t, sender.sent, "no side effects on fetch failure")
}

func TestSummarySentWhenRequested(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(t, &fakeSource{}, sender)

	_, err := n.RunCycle(context.Background(), true)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1, "summary goes out even with zero offers")
	assert.Contains(t, sender.sent[0], "No offers found")
}

func TestSummaryCountsOffersAndStores(t *testing.T) {
	start := time.Date(2025, 8, 12, 18, 0, 0, 0, time.UTC)
	other := pizzaPalace(start, start.Add(2*time.Hour))
	other.ItemID = "11"
	other.Store.ID = "2"
	other.Store.Name = "Bakery Corner"

	source := &fakeSource{offers: []models.OfferSnapshot{
		pizzaPalace(start, start.Add(2*time.Hour)),
		other,
	}}
	sender := &fakeSender{}
	n := newTestNotifier(t, source, sender)

	result, err := n.RunCycle(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Offers)
	assert.Equal(t, 2, result.Stores)

	require.Len(t, sender.sent, 3, "two offer messages plus one summary")
	assert.Contains(t, sender.sent[2], "2 offers available across 2 stores")
}
