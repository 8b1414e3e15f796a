// Package artwork looks up card images on Scryfall.
//
// Lookups are rate limited to Scryfall's published request budget and
// guarded by a circuit breaker so a failing upstream does not slow down
// every search result page. Callers treat any error as "no image".
package artwork
