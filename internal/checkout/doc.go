// Package checkout implements card checkout and provider-redirect checkout.
//
// Card payments are validated locally before anything is sent: the card
// number must be 13 to 19 digits with a valid Luhn checksum, the MM/YY
// expiry must not be past, the CVV must be three digits and the holder
// name must not be blank. Every field is checked and reported on its own.
//
// Provider checkout requests a preference, redirects to the live or sandbox
// URL and remembers the order. The return page is reconciled by verifying
// the payment (best effort) and then loading the order, which is the
// authoritative answer.
package checkout
