package models

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// OfferKey identifies one notification-worthy offer. The same store and
// item with a different pickup window is a different offer and gets its
// own notification.
type OfferKey struct {
	StoreID     string
	ItemID      string
	PickupStart string
	PickupEnd   string
}

// BuildKey derives the dedup key for an offer. Pure function.
func BuildKey(offer OfferSnapshot) OfferKey {
	return OfferKey{
		StoreID:     offer.Store.ID,
		ItemID:      offer.ItemID,
		PickupStart: CanonicalTime(offer.PickupStart),
		PickupEnd:   CanonicalTime(offer.PickupEnd),
	}
}

// CanonicalTime pins the dedup representation of a pickup timestamp:
// UTC, second precision, RFC3339. The upstream API switches between "Z"
// and numeric offsets across polls; both must collapse to the same key.
// A missing timestamp canonicalizes to the empty string.
func CanonicalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// Hash returns a stable digest of the key, used where a single opaque
// identifier is needed (redis members, log fields).
func (k OfferKey) Hash() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%s_%s_%s", k.StoreID, k.ItemID, k.PickupStart, k.PickupEnd)))
	return fmt.Sprintf("%x", sum)
}
