package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the bidding core matches at least one
// of these through errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrAuctionClosed = errors.New("auction closed")
	ErrBusy          = errors.New("busy")
)

// Error is a domain error classified under one or more kinds.
type Error struct {
	msg   string
	kinds []error
}

func newError(msg string, kinds ...error) *Error {
	return &Error{msg: msg, kinds: kinds}
}

func (e *Error) Error() string {
	return e.msg
}

// Unwrap exposes the kinds so errors.Is(err, ErrValidation) works on any
// domain error.
func (e *Error) Unwrap() []error {
	return e.kinds
}

// Validationf builds a validation error with a formatted message
func Validationf(format string, args ...interface{}) error {
	return newError(fmt.Sprintf(format, args...), ErrValidation)
}

// Domain-specific errors
var (
	// Listing errors
	ErrListingNotFound      = newError("listing not found", ErrNotFound)
	ErrListingNotAccepting  = newError("listing is not accepting bids", ErrValidation)
	ErrAuctionEnded         = newError("auction has ended", ErrAuctionClosed, ErrValidation)
	ErrAuctionNotEnded      = newError("auction has not ended", ErrValidation)
	ErrAuctionAlreadyClosed = newError("auction already closed", ErrAuctionClosed, ErrValidation)

	// Bid errors
	ErrBidNotFound          = newError("bid not found", ErrNotFound)
	ErrSelfBid              = newError("seller cannot bid on own listing", ErrValidation)
	ErrInvalidPrice         = newError("price must be greater than 0", ErrValidation)
	ErrInvalidVolume        = newError("volume must be greater than 0", ErrValidation)
	ErrPriceBelowStarting   = newError("price is below the starting price", ErrValidation)
	ErrPriceNotAboveWinning = newError("price must be higher than the current winning bid", ErrValidation)
	ErrVolumeBelowMinimum   = newError("volume is below the minimum order quantity", ErrValidation)
	ErrVolumeAboveAvailable = newError("volume exceeds the available quantity", ErrValidation)
	ErrFullVolumeMismatch   = newError("full volume bids must cover the available quantity", ErrValidation)
	ErrInvalidVolumeKind    = newError("volume type must be partial or full", ErrValidation)
	ErrCeilingBelowPrice    = newError("maximum auto-bid price must not be lower than the price", ErrValidation)
	ErrInvalidAdminAction   = newError("unknown admin action", ErrValidation)
	ErrBidNotWon            = newError("only won bids can be marked paid", ErrValidation)
	ErrInvalidStatusChange  = newError("invalid bid status transition", ErrValidation)
	ErrInvalidAutoIncrement = newError("auto-bid increment must be greater than 0", ErrValidation)

	// Bidder errors
	ErrBidderNotAuthenticated = newError("bidder is not authenticated", ErrValidation)
	ErrBidderNotAllowed       = newError("bidder is not allowed to bid", ErrValidation)
	ErrThirdPartyNotAllowed   = newError("listing does not accept third-party bids", ErrValidation)

	// Concurrency errors
	ErrListingBusy = newError("listing is busy, retry later", ErrBusy)

	// WebSocket message validation errors
	ErrMessageTypeRequired        = newError("message type is required", ErrValidation)
	ErrListingIDRequired          = newError("listing_id is required", ErrValidation)
	ErrBidIDRequired              = newError("bid_id is required", ErrValidation)
	ErrInvalidDecimal             = newError("numeric fields must be decimal strings or numbers", ErrValidation)
	ErrUnknownMessageType         = newError("unknown message type", ErrValidation)
	ErrClientEventChannelNotFound = errors.New("client event channel not found")

	// Admin surface errors
	ErrAdminUnauthorized = errors.New("admin token missing or invalid")
)
