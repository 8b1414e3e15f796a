// Package web serves the card search form.
//
// GET / renders a form with a mode selector and a query box and, when a
// query is submitted, the ranked cards with their score, mana cost, type
// line, rules text and, if an image finder is configured, the card image.
// GET /api/search returns the same results as JSON.
package web
