package domain

import (
	"strconv"
	"strings"
	"time"
)

const (
	// EventTypeIDsGenerated is emitted after the issuer mints a batch of box ids.
	EventTypeIDsGenerated = "blindbox.ids.generated"
	// EventTypeBoxOpened is emitted when a redemption wins a reward.
	EventTypeBoxOpened = "blindbox.box.opened"
	// EventTypeGoodLuckNextTime is emitted when a redemption wins nothing.
	EventTypeGoodLuckNextTime = "blindbox.box.no_win"
	// EventTypeBlacklistAdded is emitted when an account is barred from redeeming.
	EventTypeBlacklistAdded = "blindbox.blacklist.added"
	// EventTypeBlacklistRemoved is emitted when an account is allowed to redeem again.
	EventTypeBlacklistRemoved = "blindbox.blacklist.removed"
)

// Event is a structured notification emitted by state changes.
type Event struct {
	ID         int64             `json:"id,omitempty"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  time.Time         `json:"created_at,omitempty"`
}

func IDsGeneratedEvent(pool Pool, ids []BoxID) Event {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return Event{
		Type: EventTypeIDsGenerated,
		Attributes: map[string]string{
			"pool":  string(pool),
			"count": strconv.Itoa(len(ids)),
			"ids":   strings.Join(parts, ","),
		},
	}
}

func BoxOpenedEvent(rec *RedemptionRecord) Event {
	return Event{
		Type: EventTypeBoxOpened,
		Attributes: map[string]string{
			"pool":     string(rec.Pool),
			"boxId":    strconv.FormatUint(uint64(rec.BoxID), 10),
			"account":  strconv.FormatInt(rec.AccountID, 10),
			"reward":   rec.Reward.String(),
			"quantity": strconv.FormatUint(rec.Quantity, 10),
		},
	}
}

func GoodLuckNextTimeEvent(pool Pool, id BoxID, account int64) Event {
	return Event{
		Type: EventTypeGoodLuckNextTime,
		Attributes: map[string]string{
			"pool":    string(pool),
			"boxId":   strconv.FormatUint(uint64(id), 10),
			"account": strconv.FormatInt(account, 10),
		},
	}
}

func BlacklistAddedEvent(account int64) Event {
	return Event{
		Type:       EventTypeBlacklistAdded,
		Attributes: map[string]string{"account": strconv.FormatInt(account, 10)},
	}
}

func BlacklistRemovedEvent(account int64) Event {
	return Event{
		Type:       EventTypeBlacklistRemoved,
		Attributes: map[string]string{"account": strconv.FormatInt(account, 10)},
	}
}
