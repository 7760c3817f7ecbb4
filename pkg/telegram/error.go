package telegram

import (
	"errors"
	"strings"
	"time"

	// Packages
	relay "github.com/mutablelogic/go-relay"
	tele "gopkg.in/telebot.v4"
)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Error descriptions which mean that retrying with a simpler payload cannot
// succeed
var permanent = []string{
	"forbidden",
	"chat not found",
	"message to edit not found",
	"message to delete not found",
	"message thread not found",
	"bot was blocked",
	"bot was kicked",
	"user is deactivated",
	"have no rights",
	"not enough rights",
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// classify maps a telebot error onto the relay error taxonomy: flood errors
// become *relay.RateLimitError, "not modified" becomes relay.ErrNotModified,
// and everything else wraps relay.ErrPermanent or relay.ErrTransient
func classify(err error) error {
	if err == nil {
		return nil
	}

	var flood tele.FloodError
	var floodRef *tele.FloodError
	switch {
	case errors.As(err, &floodRef) && floodRef != nil:
		return rateLimit(floodRef.RetryAfter)
	case errors.As(err, &flood):
		return rateLimit(flood.RetryAfter)
	case errors.Is(err, tele.ErrMessageNotModified):
		return relay.ErrNotModified.With(err)
	}

	description := strings.ToLower(err.Error())
	if strings.Contains(description, "message is not modified") {
		return relay.ErrNotModified.With(err)
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) && apiErr.Code == 403 {
		return relay.ErrPermanent.With(err)
	}
	for _, text := range permanent {
		if strings.Contains(description, text) {
			return relay.ErrPermanent.With(err)
		}
	}
	return relay.ErrTransient.With(err)
}

func rateLimit(seconds int) error {
	return &relay.RateLimitError{RetryAfter: time.Duration(max(seconds, 1)) * time.Second}
}
