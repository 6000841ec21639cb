package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/mdemirtas/tgtg-notifier/internal/models"
	"github.com/mdemirtas/tgtg-notifier/internal/store"
	"github.com/mdemirtas/tgtg-notifier/pkg/logger"
)

// FavoritesSource lists the current favorite-store offers.
type FavoritesSource interface {
	ListFavoriteOffers(ctx context.Context) ([]models.OfferSnapshot, error)
}

// Sender delivers one text message to the notification channel.
type Sender interface {
	Send(text string) error
}

// Notifier runs poll cycles: fetch favorites, filter through the dedup
// store, notify new offers, record what was sent.
type Notifier struct {
	source   FavoritesSource
	sender   Sender
	store    store.Store
	location *time.Location
	now      func() time.Time
}

// CycleResult summarizes one completed poll cycle.
type CycleResult struct {
	Offers    int
	Stores    int
	NewOffers int
	Sent      int
	Failed    int
}

func (r CycleResult) String() string {
	return fmt.Sprintf("%d offer(s) across %d store(s), %d new, %d sent, %d failed",
		r.Offers, r.Stores, r.NewOffers, r.Sent, r.Failed)
}

func New(source FavoritesSource, sender Sender, st store.Store, location *time.Location) *Notifier {
	return &Notifier{
		source:   source,
		sender:   sender,
		store:    st,
		location: location,
		now:      time.Now,
	}
}

// RunCycle runs one fetch-filter-notify-commit pass. Per-offer send
// failures are logged and skipped so the rest of the cycle proceeds;
// fetch and storage failures abort the cycle. An offer whose send
// failed is not recorded and comes around again next cycle.
func (n *Notifier) RunCycle(ctx context.Context, sendSummary bool) (CycleResult, error) {
	var result CycleResult

	offers, err := n.source.ListFavoriteOffers(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch favorites: %w", err)
	}

	stores := make(map[string]struct{})
	var fresh []models.OfferSnapshot
	for _, offer := range offers {
		if offer.ItemsAvailable <= 0 {
			continue
		}
		result.Offers++
		stores[offer.Store.ID] = struct{}{}

		seen, err := n.store.Exists(models.BuildKey(offer))
		if err != nil {
			return result, err
		}
		if seen {
			continue
		}
		fresh = append(fresh, offer)
	}
	result.Stores = len(stores)
	result.NewOffers = len(fresh)

	now := n.now()
	for _, offer := range fresh {
		message := FormatOffer(offer, n.location, now)
		if err := n.sender.Send(message); err != nil {
			result.Failed++
			logger.Log.WithFields(map[string]interface{}{
				"store": offer.Store.Name,
				"item":  offer.DisplayName,
			}).Warnf("Failed to send notification: %v", err)
			continue
		}

		if err := n.store.Record(recordFor(offer, now)); err != nil {
			// Storage trouble after a successful send: abort rather
			// than risk unrecorded sends for the remaining offers.
			return result, err
		}
		result.Sent++
	}

	if sendSummary {
		if err := n.sender.Send(FormatSummary(result)); err != nil {
			logger.Log.Warnf("Failed to send summary: %v", err)
		}
	}

	return result, nil
}

// Purge drops records older than the retention window.
func (n *Notifier) Purge(retention time.Duration) (int64, error) {
	return n.store.PurgeOlderThan(retention)
}

func recordFor(offer models.OfferSnapshot, sentAt time.Time) models.NotificationRecord {
	key := models.BuildKey(offer)
	return models.NotificationRecord{
		StoreID:        key.StoreID,
		StoreName:      offer.Store.Name,
		ItemID:         key.ItemID,
		DisplayName:    offer.DisplayName,
		ItemsAvailable: offer.ItemsAvailable,
		PickupStart:    key.PickupStart,
		PickupEnd:      key.PickupEnd,
		SentAt:         sentAt,
	}
}
