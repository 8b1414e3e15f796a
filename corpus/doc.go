// Package corpus turns an MTGJSON AllPrintings document into the ordered,
// deduplicated card table the rest of cardseek works on.
//
// Sets and cards are visited in the byte order of the source document, so the
// same file always produces the same table and the same row numbers. When a
// card name appears in several printings the first one wins.
//
// # Usage
//
//	cards, err := corpus.Load(ctx, "AllPrintings.json")
//	if err != nil {
//	    return err
//	}
//	units := corpus.Units(cards, core.GranularityParagraph)
package corpus
